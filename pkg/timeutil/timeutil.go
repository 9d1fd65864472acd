// Package timeutil provides local calendar-day helpers for streak tracking.
// Children complete daily challenges in their own timezone, so every day key
// is computed in a caller-supplied location rather than UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// FormatDate is the day key layout (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// Clock returns the current time. Tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Calendar computes day keys in a fixed location.
type Calendar struct {
	clock Clock
	loc   *time.Location
}

// NewCalendar creates a Calendar. A nil clock means the system clock and a
// nil location means time.Local.
func NewCalendar(clock Clock, loc *time.Location) *Calendar {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{clock: clock, loc: loc}
}

// Location returns the calendar's location.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the calendar's location.
func (c *Calendar) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// TodayKey returns today's day key.
func (c *Calendar) TodayKey() string {
	return DateKey(c.Now(), c.loc)
}

// YesterdayKey returns the day key of the previous calendar day.
func (c *Calendar) YesterdayKey() string {
	return PreviousDateKey(c.Now(), c.loc)
}

// DateKey formats t as a YYYY-MM-DD key in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(FormatDate)
}

// PreviousDateKey returns the key of the day before t in loc.
// The date is rebuilt at noon so DST transitions never skip or repeat a day.
func PreviousDateKey(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, loc)
	return noon.AddDate(0, 0, -1).Format(FormatDate)
}

// IsValidDateKey reports whether key is a well-formed day key.
func IsValidDateKey(key string) bool {
	_, err := time.Parse(FormatDate, key)
	return err == nil
}

// LoadLocation resolves a timezone name, falling back to time.Local for
// empty or unknown names.
func LoadLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
