package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for every observation date.
const DateLayout = "2006-01-02"

// Observation is one stored value of a series on a calendar day.
type Observation struct {
	SeriesID  string    `json:"series_id"`
	Date      string    `json:"date"`
	Value     float64   `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Point is a dated value. Histories are slices of points ordered oldest first.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ParseDate parses an ISO calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as an ISO calendar day in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DaysBefore returns the ISO day n calendar days before t.
func DaysBefore(t time.Time, n int) string {
	return FormatDate(t.AddDate(0, 0, -n))
}
