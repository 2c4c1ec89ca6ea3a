package library

import (
	"errors"
	"testing"
	"time"
)

func TestParseReturnDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"21/03/2025", time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)},
		{"03/04/2025", time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"3/4/2025", time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"3/04/2025", time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"21/3/2025", time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)},
		{" 01/12/2024 ", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-03-21", time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseReturnDate(tt.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parse %q = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "tomorrow-ish", "32/13/2025x"} {
		if _, err := ParseReturnDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("parse %q: want ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2025, 3, 21, 0, 1, 0, 0, time.UTC)
	if got := DaysBetween(from, to); got != 20 {
		t.Fatalf("DaysBetween = %d, want 20", got)
	}
	if got := DaysBetween(to, from); got != -20 {
		t.Fatalf("DaysBetween reversed = %d, want -20", got)
	}

	// Beyond the range of time.Duration.
	far := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	want := int(far.Unix()-start.Unix()) / 86400
	if got := DaysBetween(start, far); got != want {
		t.Fatalf("DaysBetween to year 9999 = %d, want %d", got, want)
	}
}
