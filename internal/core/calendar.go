package core

import (
	"fmt"
	"time"
)

// DateKeyLayout is the canonical YYYY-MM-DD key format. Zero-padded, so
// lexicographic order on keys equals chronological order on days.
const DateKeyLayout = "2006-01-02"

// DateKey returns the calendar-day key for t in t's location. Two instants
// on the same local calendar day always produce the same key.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key back into a date at local midnight.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return t, nil
}

// WeekStart returns the Monday of the week containing t, at midnight in t's
// location. Weeks run Monday..Sunday; Sunday belongs to the week whose Monday
// is six days earlier (stable-anchor). An alternative treated Sunday as the
// opening of the upcoming week; that variant creates future-dated weeks and
// is deliberately not implemented.
func WeekStart(t time.Time) time.Time {
	// time.Weekday numbers Sunday as 0.
	back := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -back).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStartKey returns the date key of the Monday anchoring t's week.
func WeekStartKey(t time.Time) string {
	return DateKey(WeekStart(t))
}

// IsSettlementDay reports whether t falls on a Sunday, the week's closing day.
func IsSettlementDay(t time.Time) bool {
	return t.Weekday() == time.Sunday
}

// WeekDates enumerates the seven date keys Monday..Sunday of the week
// anchored at weekStartKey. Returns nil if the key is not a valid date.
func WeekDates(weekStartKey string) []string {
	start, err := ParseDateKey(weekStartKey)
	if err != nil {
		return nil
	}
	keys := make([]string, 7)
	for i := 0; i < 7; i++ {
		keys[i] = DateKey(start.AddDate(0, 0, i))
	}
	return keys
}

// WeekRangeLabel renders a human label spanning Monday..Sunday inclusive,
// e.g. "Mar 4 - Mar 10, 2024" or "Dec 30, 2024 - Jan 5, 2025" across a year
// boundary. Returns the key unchanged if it does not parse.
func WeekRangeLabel(weekStartKey string) string {
	start, err := ParseDateKey(weekStartKey)
	if err != nil {
		return weekStartKey
	}
	end := start.AddDate(0, 0, 6)
	if start.Year() == end.Year() {
		return fmt.Sprintf("%s - %s, %d",
			start.Format("Jan 2"), end.Format("Jan 2"), start.Year())
	}
	return fmt.Sprintf("%s - %s",
		start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
}

// MonthKey returns the YYYY-MM grouping key of a week, taken from its Monday.
func MonthKey(weekStartKey string) string {
	if len(weekStartKey) < 7 {
		return weekStartKey
	}
	return weekStartKey[:7]
}
