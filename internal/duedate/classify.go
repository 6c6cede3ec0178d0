package duedate

import "time"

// DefaultUpcomingDays is the look-ahead window used by IsUpcoming callers
// that have no preference of their own.
const DefaultUpcomingDays = 3

// IsOverdue reports whether the end of the due day has already passed.
func IsOverdue(d *Date, now time.Time) bool {
	if d == nil {
		return false
	}
	return now.After(d.EndOfDay(now.Location()))
}

// IsToday reports whether the due day is the current calendar day.
func IsToday(d *Date, now time.Time) bool {
	if d == nil {
		return false
	}
	return *d == Of(now)
}

// IsUpcoming reports whether the due day falls after today and no more than
// days calendar days ahead.
func IsUpcoming(d *Date, now time.Time, days int) bool {
	if d == nil {
		return false
	}
	diff := d.DaysUntil(Of(now))
	return diff >= 1 && diff <= days
}
