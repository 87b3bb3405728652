package domain

import (
	"errors"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

var errInvalidTime = errors.New("invalid_time")

// ParseTime accepts RFC3339 or a bare date. A bare date resolves to the start
// of that day in UTC, or to its last instant when endOfDay is set.
func ParseTime(raw string, endOfDay bool) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(dateOnlyLayout, trimmed)
	if err != nil {
		return time.Time{}, errInvalidTime
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return parsed, nil
}
