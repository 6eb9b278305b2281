// Package timeutil provides campus-timezone utilities. Application deadlines
// and posting dates are civil dates, so "today" must be taken in the campus
// timezone rather than in UTC.
package timeutil

import (
	"fmt"
	"time"
)

// DefaultTimezone is used when no campus timezone is configured.
const DefaultTimezone = "Asia/Kolkata"

// FormatDate is the wire format of civil dates (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// LoadLocation resolves a timezone name, falling back to a fixed IST offset
// when the system has no tzdata for it.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, 5*60*60+30*60)
	}
	return loc
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ══════════════════════════════════════════════════════════════════════════════

// Clock supplies the current instant and the current civil date.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// CampusClock reads the system clock in the campus timezone.
type CampusClock struct {
	loc *time.Location
}

// NewCampusClock creates a clock for the given location.
func NewCampusClock(loc *time.Location) *CampusClock {
	if loc == nil {
		loc = LoadLocation(DefaultTimezone)
	}
	return &CampusClock{loc: loc}
}

// Now returns the current instant in the campus timezone.
func (c *CampusClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today returns the current campus civil date.
func (c *CampusClock) Today() time.Time {
	return CivilDate(c.Now())
}

// Location returns the campus location.
func (c *CampusClock) Location() *time.Location {
	return c.loc
}

// FixedClock always reports the same instant. Useful in tests.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.At }

// Today returns the civil date of the fixed instant.
func (c FixedClock) Today() time.Time { return CivilDate(c.At) }

// ══════════════════════════════════════════════════════════════════════════════
// CIVIL DATES
// ══════════════════════════════════════════════════════════════════════════════

// CivilDate strips the clock from t, keeping its calendar day as observed in
// t's own location. The result is midnight UTC, matching how DATE columns
// are scanned.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a civil date by n calendar days.
func AddDays(date time.Time, n int) time.Time {
	return CivilDate(date).AddDate(0, 0, n)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(CivilDate(b).Sub(CivilDate(a)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(FormatDate, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse date %q: %w", value, err)
	}
	return t, nil
}
