// Package dates provides calendar day arithmetic and due-date phrasing.
//
// Every schedule computation in Leafwise is expressed in whole calendar
// days; these helpers are the single place that knows how days are counted.
package dates

import (
	"fmt"
	"time"
)

// dayLength is one full calendar day.
const dayLength = 24 * time.Hour

// AddDays returns a new time n calendar days after t. n may be negative.
// The input is never mutated.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the signed day count from a to b, rounding any
// partial day up. The ceiling keeps "due today" registering as due rather
// than sliding to tomorrow.
func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	days := int(diff / dayLength)
	if diff%dayLength > 0 {
		days++
	}
	return days
}

// StartOfDay strips the time of day, keeping the location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateKey formats t as a date-only key for calendar grouping.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDateKey parses a calendar key produced by DateKey.
func ParseDateKey(key string) (time.Time, error) {
	return time.Parse("2006-01-02", key)
}

// FormatDueDate classifies due relative to now, time of day stripped from
// both sides: due today, due tomorrow, due in N days, or overdue by N
// day(s).
func FormatDueDate(due, now time.Time) string {
	diff := DaysBetween(StartOfDay(now), StartOfDay(due))
	switch {
	case diff == 0:
		return "due today"
	case diff < 0:
		return fmt.Sprintf("overdue by %d day(s)", -diff)
	case diff == 1:
		return "due tomorrow"
	default:
		return fmt.Sprintf("due in %d days", diff)
	}
}
