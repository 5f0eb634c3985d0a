package scheduler

import (
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
)

// NextOccurrence returns the first instant strictly after now that falls on
// one of days at minute past midnight by the wall clock of now's location.
// With no days it returns now plus one week so callers never spin.
func NextOccurrence(now time.Time, days []time.Weekday, minute int) time.Time {
	if len(days) == 0 {
		return now.AddDate(0, 0, 7)
	}
	on := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		on[d] = true
	}

	y, m, d := now.Date()
	for i := 0; i <= 7; i++ {
		at := time.Date(y, m, d+i, minute/60, minute%60, 0, 0, now.Location())
		if on[at.Weekday()] && at.After(now) {
			return at
		}
	}
	return now.AddDate(0, 0, 7)
}

// EndDays returns the weekdays on which a window ends. Windows that wrap
// past midnight end on the following day.
func EndDays(s models.Schedule) []time.Weekday {
	if s.StopOnly || s.EndMinute > s.StartMinute {
		return s.Days
	}
	out := make([]time.Weekday, len(s.Days))
	for i, d := range s.Days {
		out[i] = (d + 1) % 7
	}
	return out
}
