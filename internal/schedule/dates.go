package schedule

import (
	"strings"
	"time"
)

var weekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// mondayIndexed converts time.Weekday (Sunday=0) to a Monday=0 index.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// resolveFloor computes the first date the search may start from. The
// earliest-acceptable-date phrase sets the floor; the preferred date may only
// raise it, never pull it earlier.
func resolveFloor(prefs Preferences, now time.Time) time.Time {
	floor := now.AddDate(0, 0, 1)

	if earliest := strings.ToLower(strings.TrimSpace(prefs.EarliestAcceptableDate)); earliest != "" {
		switch {
		case strings.Contains(earliest, "next week"):
			days := (7 - mondayIndexed(now.Weekday())) % 7
			if days == 0 {
				days = 7
			}
			floor = now.AddDate(0, 0, days)
		case strings.Contains(earliest, "next month"):
			floor = now.AddDate(0, 0, 30)
		case strings.Contains(earliest, "tomorrow"):
			floor = now.AddDate(0, 0, 1)
		default:
			if days, ok := daysUntilNamedWeekday(earliest, now); ok {
				floor = now.AddDate(0, 0, days)
			}
		}
	}

	if preferred := strings.ToLower(strings.TrimSpace(prefs.PreferredDate)); preferred != "" {
		var wanted time.Time
		switch {
		case strings.Contains(preferred, "tomorrow"):
			wanted = now.AddDate(0, 0, 1)
		case strings.Contains(preferred, "today"):
			wanted = now
		}
		if !wanted.IsZero() && !wanted.Before(floor) {
			floor = wanted
		}
	}

	return floor
}

// daysUntilNamedWeekday resolves a weekday name inside the phrase to the next
// occurrence of that weekday. A day already past this week, or a phrase
// containing "next", pushes the target a further week out.
func daysUntilNamedWeekday(phrase string, now time.Time) (int, bool) {
	for i, name := range weekdayNames {
		if !strings.Contains(phrase, name) {
			continue
		}
		days := i - mondayIndexed(now.Weekday())
		if days <= 0 || strings.Contains(phrase, "next") {
			days += 7
		}
		return days, true
	}
	return 0, false
}
