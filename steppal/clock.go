package steppal

import (
	"time"

	"github.com/robfig/cron/v3"
)

// DateLayout is the calendar date format used for day keys in persisted state.
const DateLayout = "2006-01-02"

// weekStartCronexpr marks the start of a week: Sunday at midnight.
const weekStartCronexpr = "0 0 * * 0"

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

// Now returns the current time using the system clock.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Calendar resolves calendar days, weeks and months in a fixed reference location.
// Day arithmetic compares civil dates, never elapsed hours.
type Calendar struct {
	loc       *time.Location
	weekStart cron.Schedule
}

// NewCalendar returns a calendar in the given location, UTC when nil.
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	sched, err := cron.ParseStandard(weekStartCronexpr)
	if err != nil {
		// The expression is a constant.
		panic(err)
	}
	return &Calendar{loc: loc, weekStart: sched}
}

// Location returns the reference location of the calendar.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Date returns the calendar date of t.
func (c *Calendar) Date(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// Midnight returns the start of the calendar day containing t.
func (c *Calendar) Midnight(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// ParseDate parses a stored calendar date as midnight in the reference location.
func (c *Calendar) ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, c.loc)
}

// DaysBetween returns the number of calendar days from date to the day containing t.
func (c *Calendar) DaysBetween(date string, t time.Time) (int, error) {
	from, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, err
	}
	local := t.In(c.loc)
	to := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24), nil
}

// WeekStart returns the Sunday midnight that starts the week containing t.
func (c *Calendar) WeekStart(t time.Time) time.Time {
	midnight := c.Midnight(t)
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

// IsNewWeek reports whether a week boundary lies after the given date and at or before t.
func (c *Calendar) IsNewWeek(date string, t time.Time) bool {
	from, err := c.ParseDate(date)
	if err != nil {
		return true
	}
	return !c.weekStart.Next(from).After(t.In(c.loc))
}

// IsNewMonth reports whether t falls in a later calendar month than date.
func (c *Calendar) IsNewMonth(date string, t time.Time) bool {
	from, err := c.ParseDate(date)
	if err != nil {
		return true
	}
	local := t.In(c.loc)
	return local.Year() != from.Year() || local.Month() != from.Month()
}
