package utils

import "time"

const dayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into midnight UTC of that day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, s, time.UTC)
}

// FormatDay renders a day value back to YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// DayWindow returns the half-open interval [day, day+1).
func DayWindow(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// YesterdayIn returns yesterday's calendar date in the named time zone,
// normalized to midnight UTC. Falls back to UTC when the zone is unknown.
func YesterdayIn(tzName string) time.Time {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -1)
}
