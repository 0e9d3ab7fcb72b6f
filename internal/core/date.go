package core

import (
	"fmt"
	"time"
)

// Date is a calendar day with no time-of-day component. Attendance and
// request rows are keyed by Date, so two values compare equal iff they
// name the same day.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to day precision.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current day in UTC.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses an ISO yyyy-mm-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String renders the ISO yyyy-mm-dd form used in storage and on the wire.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

// SameMonth reports whether d and other fall in the same calendar
// month and year. This is the monthly-statistics filter: calendar
// local, not a rolling 30-day window.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}
