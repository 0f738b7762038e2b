package tracker

import (
	"time"

	"neuroTrackAPI/internal/types/entry"
)

// Location decides where a calendar day starts and ends. Set once at startup.
var Location = time.UTC

// DateKey formats t as the calendar day it falls on in Location.
func DateKey(t time.Time) string {
	return t.In(Location).Format(entry.DateLayout)
}

// Today is DateKey(time.Now()).
func Today() string {
	return DateKey(time.Now())
}

// day truncates t to midnight UTC of its calendar day in Location, so day
// arithmetic never trips over DST transitions.
func day(t time.Time) time.Time {
	local := t.In(Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD key.
func ParseDate(key string) (time.Time, error) {
	return time.Parse(entry.DateLayout, key)
}

// ShiftDate moves a date key by n days.
func ShiftDate(key string, n int) (string, error) {
	d, err := ParseDate(key)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, n).Format(entry.DateLayout), nil
}
