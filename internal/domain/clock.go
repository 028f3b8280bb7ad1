package domain

import (
	"fmt"
	"time"
)

// Clock supplies the current instant. Services never call time.Now directly so
// tests can pin "today".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

const dayLayout = "2006-01-02"

// Day returns the calendar date of t as seen in loc, encoded as midnight UTC.
// Every date-only field (membership start/end, report bounds) uses this form.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey formats a calendar date as YYYY-MM-DD.
func DayKey(day time.Time) string {
	return day.Format(dayLayout)
}

// ParseDay parses a YYYY-MM-DD string into a calendar date.
func ParseDay(s string) (time.Time, error) {
	day, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return day, nil
}

// MonthDates returns the half-open date range [first day of month, first day
// of next month) for date-only fields.
func MonthDates(month, year int) (from, to time.Time, err error) {
	if month < 1 || month > 12 || year < 1 {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// MonthSpan returns the half-open instant range covering the month in loc,
// for timestamp fields such as expense and service times.
func MonthSpan(month, year int, loc *time.Location) (from, to time.Time, err error) {
	if month < 1 || month > 12 || year < 1 {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	if loc == nil {
		loc = time.UTC
	}
	from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0), nil
}

// PreviousMonth steps back one calendar month, wrapping the year.
func PreviousMonth(month, year int) (int, int) {
	if month == 1 {
		return 12, year - 1
	}
	return month - 1, year
}
