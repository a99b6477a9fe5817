package series

import "sort"

// InnerJoin returns the dates present in every series, ascending. Used when
// all components must be known on the same day. No series yields no dates.
func InnerJoin(ss ...Series) []string {
	if len(ss) == 0 {
		return nil
	}
	smallest := ss[0]
	for _, s := range ss[1:] {
		if s.Len() < smallest.Len() {
			smallest = s
		}
	}
	var out []string
	for _, d := range smallest.dates {
		inAll := true
		for _, s := range ss {
			if !s.Has(d) {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, d)
		}
	}
	return out
}

// Filled pairs a primary date with the forward-filled observation of a
// slower or differently scheduled series.
type Filled struct {
	Date     string
	FillDate string
	Value    float64
}

// ForwardFill resolves, for each primary date, the newest observation of fill
// dated on or before it. Primary dates that precede the first fill
// observation are dropped; values are never extrapolated backwards.
// primaryDates must be ascending.
func ForwardFill(primaryDates []string, fill Series) []Filled {
	var out []Filled
	idx := -1
	for _, d := range primaryDates {
		for idx+1 < len(fill.dates) && fill.dates[idx+1] <= d {
			idx++
		}
		if idx < 0 {
			continue
		}
		fd := fill.dates[idx]
		out = append(out, Filled{Date: d, FillDate: fd, Value: fill.values[fd]})
	}
	return out
}

// Summed is one date of a union-with-default join.
type Summed struct {
	Date  string
	Total float64
}

// UnionDefault sums additive components over the union of their dates,
// treating a missing component as zero. Dates whose total is not strictly
// positive are dropped.
func UnionDefault(ss ...Series) []Summed {
	seen := make(map[string]struct{})
	for _, s := range ss {
		for _, d := range s.dates {
			seen[d] = struct{}{}
		}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out []Summed
	for _, d := range dates {
		total := 0.0
		for _, s := range ss {
			total += s.GetOrZero(d)
		}
		if total > 0 {
			out = append(out, Summed{Date: d, Total: total})
		}
	}
	return out
}
