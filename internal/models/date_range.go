package models

import (
	"time"

	"github.com/irfndi/lifemetrics/internal/utils"
)

// DateLayout is the calendar-date format used at every boundary.
const DateLayout = "2006-01-02"

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CalendarDate truncates t to midnight UTC of its own calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDateRange validates and normalizes a range. An end before the start is a
// caller bug and is reported as a validation error.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start, end = CalendarDate(start), CalendarDate(end)
	if end.Before(start) {
		return DateRange{}, utils.NewFieldValidationError("end", "%s is before start %s",
			end.Format(DateLayout), start.Format(DateLayout))
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange parses YYYY-MM-DD boundaries.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, utils.NewFieldValidationError("start", "cannot parse %q as %s", start, DateLayout)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, utils.NewFieldValidationError("end", "cannot parse %q as %s", end, DateLayout)
	}
	return NewDateRange(s, e)
}

// TrailingDays returns the range of the given number of days ending on the
// calendar day of now.
func TrailingDays(now time.Time, days int) DateRange {
	end := CalendarDate(now)
	return DateRange{Start: end.AddDate(0, 0, -days), End: end}
}

// Days returns the number of whole days between Start and End.
func (r DateRange) Days() int {
	return DaysBetween(r.Start, r.End)
}

// Contains reports whether the calendar day of t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := CalendarDate(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(CalendarDate(b).Sub(CalendarDate(a)).Hours() / 24)
}
