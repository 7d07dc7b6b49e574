package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when the start day is missing or the end day precedes it.
var ErrInvalidRange = errors.New("invalid date range")

// Schedule describes when an action recurs. It is immutable after New returns;
// all days are held as civil days (midnight UTC carrying the caller's year, month and day).
type Schedule struct {
	start     time.Time
	end       time.Time
	hasEnd    bool
	frequency Frequency
}

// New builds a Schedule. end may be nil for an unbounded recurrence.
// For Once the end is forced to the start day.
func New(start time.Time, end *time.Time, freq Frequency) (Schedule, error) {
	if !freq.Valid() {
		return Schedule{}, fmt.Errorf("%w: code %d", ErrInvalidFrequency, int(freq))
	}
	if start.IsZero() {
		return Schedule{}, fmt.Errorf("%w: start date is required", ErrInvalidRange)
	}

	s := Schedule{start: Day(start), frequency: freq}
	switch {
	case freq == Once:
		s.end, s.hasEnd = s.start, true
	case end != nil:
		e := Day(*end)
		if e.Before(s.start) {
			return Schedule{}, fmt.Errorf("%w: end %s is before start %s",
				ErrInvalidRange, e.Format(DateLayout), s.start.Format(DateLayout))
		}
		s.end, s.hasEnd = e, true
	}
	return s, nil
}

// NewOnce builds a one-off schedule for the given day.
func NewOnce(day time.Time) (Schedule, error) {
	return New(day, nil, Once)
}

func (s Schedule) Start() time.Time { return s.start }

// End returns the last eligible day and false when the schedule has no upper bound.
func (s Schedule) End() (time.Time, bool) { return s.end, s.hasEnd }

func (s Schedule) Frequency() Frequency { return s.frequency }

// Expired reports whether today is past the end day.
func (s Schedule) Expired(today time.Time) bool {
	return s.hasEnd && Day(today).After(s.end)
}

// maxLookahead bounds Next; every recurring pattern fires at least once in this many days.
const maxLookahead = 400

// Next returns the first due day on or after from.
// The second value is false when the schedule never fires again.
func (s Schedule) Next(from time.Time) (time.Time, bool) {
	day := Day(from)
	if day.Before(s.start) {
		day = s.start
	}
	for i := 0; i < maxLookahead; i++ {
		if s.Expired(day) {
			return time.Time{}, false
		}
		if IsDue(s, day) {
			return day, true
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

func (s Schedule) String() string {
	if !s.hasEnd {
		return fmt.Sprintf("%s from %s", s.frequency, s.start.Format(DateLayout))
	}
	if s.frequency == Once {
		return fmt.Sprintf("once on %s", s.start.Format(DateLayout))
	}
	return fmt.Sprintf("%s from %s until %s", s.frequency, s.start.Format(DateLayout), s.end.Format(DateLayout))
}
