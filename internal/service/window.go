package service

import (
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
)

// Overlaps reports whether the closed intervals [s1, e1] and [s2, e2]
// intersect. Shared endpoints count as an overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}

// DayWindow returns the inclusive UTC window covering the calendar date of
// date as seen in UTC: [00:00:00.000, 23:59:59.999].
func DayWindow(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
	return start, end
}

// MonthWindow returns the inclusive UTC window of a 1-indexed month. The last
// day is day 0 of the following month, so month lengths and leap years fall
// out of time.Date normalisation.
func MonthWindow(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, apperr.Invalid("month must be between 1 and 12, got %d", month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month)+1, 0, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	return start, end, nil
}
