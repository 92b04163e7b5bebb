// Package timeutil provides calendar-day utilities for SkillPath Progression.
// Streaks and daily activity counters are defined in terms of calendar days,
// so every day-boundary computation goes through an explicitly configured
// timezone instead of the ambient server zone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// Day represents a calendar day (date without time) in the configured
// day-boundary timezone. The zero Day is "unset".
type Day struct {
	Year       int
	Month      time.Month
	DayOfMonth int
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.DayOfMonth == 0
}

// String returns the day in YYYY-MM-DD format.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.DayOfMonth)
}

// Time returns the start of the day (00:00:00) in the given location.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.DayOfMonth, 0, 0, 0, 0, loc)
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	return DayOf(d.Time(time.UTC).AddDate(0, 0, 1), time.UTC)
}

// Prev returns the preceding calendar day.
func (d Day) Prev() Day {
	return DayOf(d.Time(time.UTC).AddDate(0, 0, -1), time.UTC)
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.DayOfMonth < other.DayOfMonth
}

// After reports whether d is strictly later than other.
func (d Day) After(other Day) bool {
	return other.Before(d)
}

// DaysUntil returns the number of calendar days from d to other
// (positive when other is later).
func (d Day) DaysUntil(other Day) int {
	from := d.Time(time.UTC)
	to := other.Time(time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// DayOf truncates a timestamp to its calendar day in the given location.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Day{Year: local.Year(), Month: local.Month(), DayOfMonth: local.Day()}
}

// ParseDay parses a YYYY-MM-DD string into a Day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(FormatDate, s)
	if err != nil {
		return Day{}, fmt.Errorf("timeutil: invalid day %q: %w", s, err)
	}
	return DayOf(t, time.UTC), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR
// ══════════════════════════════════════════════════════════════════════════════

// Calendar resolves timestamps to calendar days under one fixed day-boundary
// policy. Exactly one Calendar is built from configuration at process start;
// computing days through two different calendars for the same user is a bug.
type Calendar struct {
	loc *time.Location
}

// NewCalendar creates a Calendar for the given location.
// A nil location falls back to UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// UTCCalendar returns a Calendar with UTC day boundaries, the default policy.
func UTCCalendar() Calendar {
	return Calendar{loc: time.UTC}
}

// Location returns the calendar's timezone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DayOf returns the calendar day a timestamp falls on.
func (c Calendar) DayOf(t time.Time) Day {
	return DayOf(t, c.Location())
}

// HourOf returns the local hour (0-23) a timestamp falls on.
// Used for time-of-day badge criteria (early/late completion).
func (c Calendar) HourOf(t time.Time) int {
	return t.In(c.Location()).Hour()
}

// IsSameDay reports whether two timestamps fall on the same calendar day.
func (c Calendar) IsSameDay(t1, t2 time.Time) bool {
	return c.DayOf(t1) == c.DayOf(t2)
}

// IsConsecutiveDay reports whether t2 falls on the day right after t1.
func (c Calendar) IsConsecutiveDay(t1, t2 time.Time) bool {
	return c.DayOf(t1).Next() == c.DayOf(t2)
}

// StartOfDay returns 00:00:00 of the timestamp's day in the calendar zone.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	return c.DayOf(t).Time(c.Location())
}

// MonthRange returns the first and last day of the given month.
func (c Calendar) MonthRange(year int, month time.Month) (Day, Day) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, c.Location())
	last := first.AddDate(0, 1, -1)
	return c.DayOf(first), c.DayOf(last)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)
