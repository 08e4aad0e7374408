// Package isoweek provides ISO-8601 week arithmetic on YYYY-MM-DD date strings.
// Weeks start on Monday; week 1 is the week containing the year's first Thursday.
package isoweek

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

func parse(date string) (time.Time, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("isoweek: invalid date %q: %w", date, err)
	}
	return t, nil
}

// weekdayIndex maps Monday..Sunday to 0..6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ISOWeek returns the ISO year and week number of date.
func ISOWeek(date string) (year, week int, err error) {
	t, err := parse(date)
	if err != nil {
		return 0, 0, err
	}
	year, week = t.ISOWeek()
	return year, week, nil
}

// MondayOfWeek returns the Monday of the week containing date.
func MondayOfWeek(date string) (string, error) {
	t, err := parse(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -weekdayIndex(t)).Format(layout), nil
}

// MondayOfISOWeek returns the Monday of the given ISO week.
func MondayOfISOWeek(year, week int) string {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := jan4.AddDate(0, 0, -weekdayIndex(jan4))
	return monday.AddDate(0, 0, (week-1)*7).Format(layout)
}

// WeekDates returns the seven dates Monday through Sunday of the week
// starting on monday.
func WeekDates(monday string) ([]string, error) {
	t, err := parse(monday)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 7)
	for i := range dates {
		dates[i] = t.AddDate(0, 0, i).Format(layout)
	}
	return dates, nil
}

// FormatDuration renders minutes as "1h 30m", "2h" or "45m".
func FormatDuration(minutes int64) string {
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatHours renders minutes as hours with one decimal, e.g. "7.5 hrs".
func FormatHours(minutes int64) string {
	return fmt.Sprintf("%g hrs", float64(int64(float64(minutes)/6+0.5))/10)
}
