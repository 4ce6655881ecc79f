package helpers

import (
	"strings"
	"time"
)

// ISODate is the layout used for every date crossing the API boundary
const ISODate = "2006-01-02"

// ShortDate is the dashboard label layout, e.g. "Jan 05"
const ShortDate = "Jan 02"

// ParseISODate parses a YYYY-MM-DD date in UTC
func ParseISODate(value string) (time.Time, error) {
	return time.Parse(ISODate, strings.TrimSpace(value))
}

// DaysBetween returns the whole days from start to end (negative when end is earlier)
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// Today returns the current UTC date truncated to midnight
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
