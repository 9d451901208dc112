// Package calendar counts trading days.
package calendar

import (
	"time"
)

// Calendar answers how many trading days separate two instants.
type Calendar interface {
	// TradingDaysBetween returns the number of trading days d with date(t0) < d <= date(t1).
	// It returns 0 when t1 is not after t0.
	TradingDaysBetween(t0, t1 time.Time) int
	// IsTradingDay reports whether the date of t is a trading session.
	IsTradingDay(t time.Time) bool
}

// WeekdayCalendar treats every Monday to Friday as a session except the listed holidays.
type WeekdayCalendar struct {
	location *time.Location
	holidays map[civilDate]struct{}
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time, loc *time.Location) civilDate {
	y, m, d := t.In(loc).Date()

	return civilDate{year: y, month: m, day: d}
}

func (c civilDate) time() time.Time {
	return time.Date(c.year, c.month, c.day, 0, 0, 0, 0, time.UTC)
}

// NewWeekdayCalendar builds a calendar whose dates are evaluated in loc (UTC when nil).
func NewWeekdayCalendar(loc *time.Location, holidays ...time.Time) *WeekdayCalendar {
	if loc == nil {
		loc = time.UTC
	}

	c := &WeekdayCalendar{
		location: loc,
		holidays: make(map[civilDate]struct{}, len(holidays)),
	}

	for _, h := range holidays {
		c.holidays[civilDate{year: h.Year(), month: h.Month(), day: h.Day()}] = struct{}{}
	}

	return c
}

// IsTradingDay implements Calendar.
func (c *WeekdayCalendar) IsTradingDay(t time.Time) bool {
	return c.isSession(dateOf(t, c.location))
}

func (c *WeekdayCalendar) isSession(d civilDate) bool {
	switch d.time().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	_, holiday := c.holidays[d]

	return !holiday
}

// TradingDaysBetween implements Calendar.
func (c *WeekdayCalendar) TradingDaysBetween(t0, t1 time.Time) int {
	start := dateOf(t0, c.location).time()
	end := dateOf(t1, c.location).time()

	if !end.After(start) {
		return 0
	}

	count := 0
	for day := start.AddDate(0, 0, 1); !day.After(end); day = day.AddDate(0, 0, 1) {
		if c.isSession(civilDate{year: day.Year(), month: day.Month(), day: day.Day()}) {
			count++
		}
	}

	return count
}
