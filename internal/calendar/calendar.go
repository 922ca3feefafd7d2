// Package calendar holds the day-level date arithmetic used by the lifecycle
// services and the scheduled jobs. All results are models.Date values in the
// deployment's time zone.
package calendar

import (
	"time"

	"estate/internal/models"
)

type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location, now func() time.Time) Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Clock{loc: loc, now: now}
}

func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Today is the calendar day in the clock's location.
func (c Clock) Today() models.Date {
	return models.DateOf(c.Now().In(c.Location()))
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Clamp returns day of the given month, or the month's last day when day does not exist in it.
func Clamp(year int, month time.Month, day int) models.Date {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return models.NewDate(year, month, day)
}

// AddMonths keeps the day of month, clamped to the target month.
func AddMonths(d models.Date, months int) models.Date {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	return Clamp(first.Year(), first.Month(), d.Day())
}

func AddYears(d models.Date, years int) models.Date {
	return AddMonths(d, 12*years)
}

// Within reports from <= d <= to.
func Within(d, from, to models.Date) bool {
	return !d.Before(from) && !d.After(to)
}

// MonthlySchedule lists one due date per calendar month between from and to
// inclusive. Each date falls on day, clamped to the length of its month.
func MonthlySchedule(from, to models.Date, day int) []models.Date {
	if to.Before(from) {
		return nil
	}
	var dates []models.Date
	year, month := from.Year(), from.Month()
	for {
		due := Clamp(year, month, day)
		if due.After(to) {
			break
		}
		if !due.Before(from) {
			dates = append(dates, due)
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return dates
}
