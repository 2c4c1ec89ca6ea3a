package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the dd/MM/yyyy format the desk prints.
const DateLayout = "02/01/2006"

// inputLayout also accepts single-digit days and months, e.g. 3/4/2025.
const inputLayout = "2/1/2006"

// ParseReturnDate reads a calendar date. dd/MM/yyyy is tried first so that
// ambiguous inputs like 03/04/2025 or 3/4/2025 mean 3 April; any other layout dateparse
// understands (2025-04-03, "April 3, 2025", ...) is accepted as a fallback.
func ParseReturnDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrInvalidDate)
	}
	if t, err := time.ParseInLocation(inputLayout, s, time.Local); err == nil {
		return CivilDate(t), nil
	}
	t, err := dateparse.ParseLocal(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return CivilDate(t), nil
}

// CivilDate drops the time of day, keeping the calendar date t shows in its
// own location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from one date to another.
func DaysBetween(from, to time.Time) int {
	const secondsPerDay = 24 * 60 * 60
	return int((CivilDate(to).Unix() - CivilDate(from).Unix()) / secondsPerDay)
}
