package calendar

import (
	"time"

	"github.com/rancho/rancho-backend/pkg/errors"
)

// DateLayout is the wire and storage format for calendar dates
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string in local time
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, errors.BadInput("invalid date, expected YYYY-MM-DD")
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DayOf truncates an instant to its calendar day
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole calendar days from a to b (negative when b
// precedes a). Both instants are truncated to their day first.
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}
