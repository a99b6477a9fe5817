// Package series provides an ordered date-keyed value map and the join
// policies used to align heterogeneous series by calendar day.
package series

import (
	"sort"

	"liquidity-monitor/internal/domain"
)

// Series is an immutable date→value map whose dates are kept in ascending
// ISO order. The zero value is an empty series.
type Series struct {
	values map[string]float64
	dates  []string
}

// FromPoints builds a series from points in any order. When a date repeats,
// the last point wins.
func FromPoints(points []domain.Point) Series {
	values := make(map[string]float64, len(points))
	for _, p := range points {
		values[p.Date] = p.Value
	}
	dates := make([]string, 0, len(values))
	for d := range values {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return Series{values: values, dates: dates}
}

// Len returns the number of distinct dates.
func (s Series) Len() int { return len(s.dates) }

// Empty reports whether the series has no observations.
func (s Series) Empty() bool { return len(s.dates) == 0 }

// Dates returns the dates in ascending order. The slice must not be modified.
func (s Series) Dates() []string { return s.dates }

// Get returns the value stored for date.
func (s Series) Get(date string) (float64, bool) {
	v, ok := s.values[date]
	return v, ok
}

// GetOrZero returns the value stored for date, or 0 when absent.
func (s Series) GetOrZero(date string) float64 {
	return s.values[date]
}

// Has reports whether date is present.
func (s Series) Has(date string) bool {
	_, ok := s.values[date]
	return ok
}

// Latest returns the newest point.
func (s Series) Latest() (domain.Point, bool) {
	if len(s.dates) == 0 {
		return domain.Point{}, false
	}
	d := s.dates[len(s.dates)-1]
	return domain.Point{Date: d, Value: s.values[d]}, true
}

// OnOrBefore returns the newest point whose date is <= date.
func (s Series) OnOrBefore(date string) (domain.Point, bool) {
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i] > date })
	if i == 0 {
		return domain.Point{}, false
	}
	d := s.dates[i-1]
	return domain.Point{Date: d, Value: s.values[d]}, true
}

// Points returns the series as points, oldest first.
func (s Series) Points() []domain.Point {
	out := make([]domain.Point, 0, len(s.dates))
	for _, d := range s.dates {
		out = append(out, domain.Point{Date: d, Value: s.values[d]})
	}
	return out
}
