package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFrequency is returned when a frequency code or name is not one of the known variants.
var ErrInvalidFrequency = errors.New("invalid frequency")

// Frequency is the recurrence pattern of a schedule.
// Values match the codes stored in the schedules table.
type Frequency int

const (
	Daily    Frequency = 0
	Weekly   Frequency = 1
	Biweekly Frequency = 2
	Monthly  Frequency = 3
	Once     Frequency = 4
)

// Frequencies lists every variant in code order.
var Frequencies = []Frequency{Daily, Weekly, Biweekly, Monthly, Once}

// FrequencyFromCode converts a stored integer code into a Frequency.
func FrequencyFromCode(code int) (Frequency, error) {
	f := Frequency(code)
	if !f.Valid() {
		return 0, fmt.Errorf("%w: code %d", ErrInvalidFrequency, code)
	}
	return f, nil
}

// ParseFrequency accepts the lower-case names produced by String.
func ParseFrequency(raw string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "biweekly":
		return Biweekly, nil
	case "monthly":
		return Monthly, nil
	case "once":
		return Once, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, raw)
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Once:
		return true
	default:
		return false
	}
}

// Code returns the integer persisted for f.
func (f Frequency) Code() int { return int(f) }

// Recurring reports whether f fires more than once.
func (f Frequency) Recurring() bool {
	return f.Valid() && f != Once
}

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Biweekly:
		return "biweekly"
	case Monthly:
		return "monthly"
	case Once:
		return "once"
	default:
		return fmt.Sprintf("frequency(%d)", int(f))
	}
}
