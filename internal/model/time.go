package model

import (
	"fmt"
	"time"
)

// TimeLayout is the canonical timestamp form: UTC with millisecond precision.
// Canonical timestamps order lexically the same way they order in time.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// DateLayout is the calendar date form used by time entries and weeks.
const DateLayout = "2006-01-02"

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	DateLayout,
}

// FormatTime renders t in canonical form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts RFC 3339 timestamps, zone-less timestamps (read as UTC)
// and bare dates.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// CanonicalTime rewrites s in canonical form. ok is false when s does not parse.
func CanonicalTime(s string) (string, bool) {
	t, err := ParseTime(s)
	if err != nil {
		return s, false
	}
	return FormatTime(t), true
}
