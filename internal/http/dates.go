package http

import (
	"strings"
	"time"
)

const datetimeLocalLayout = "2006-01-02T15:04"

// parseAppointment accepts RFC 3339 or an HTML datetime-local value read in loc.
// An empty value yields the zero time so service validation reports it.
func parseAppointment(raw string, loc *time.Location) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(datetimeLocalLayout, value, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
