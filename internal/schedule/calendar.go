package schedule

import (
	"fmt"
	"time"
)

// DateLayout is the day format used in commands, the API and logs.
const DateLayout = "2006-01-02"

// Day strips the time of day from t. The year, month and day are read in t's own
// location and the result is midnight UTC, so two Days compare by calendar date only.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Day(time.Now().In(loc))
}

// ParseDay parses a YYYY-MM-DD string into a Day.
func ParseDay(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", raw, err)
	}
	return t, nil
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLastDayOfMonth reports whether t falls on the final day of its month.
func IsLastDayOfMonth(t time.Time) bool {
	y, m, d := t.Date()
	return d == DaysInMonth(y, m)
}

// WeekOfYear returns the ISO 8601 week number of t (weeks start on Monday,
// week 1 contains the year's first Thursday). Days in late December may
// belong to week 1 and days in early January to week 52 or 53.
func WeekOfYear(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}
