package util

import (
	"errors"
	"time"
)

var ErrMissingZone = errors.New("timestamp has no zone offset")

// instantLayouts are the ISO-8601 forms accepted for alert timestamps.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
}

// localLayouts are ISO-8601 forms without a zone. They are well-formed dates
// but ParseInstant refuses them.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseInstant parses an ISO-8601 timestamp that carries an explicit zone.
func ParseInstant(s string) (time.Time, error) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return time.Time{}, ErrMissingZone
		}
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return time.Time{}, err
}

// IsISO8601 reports whether s is a well-formed ISO-8601 date-time, zoned or not.
func IsISO8601(s string) bool {
	if s == "" {
		return false
	}
	_, err := ParseInstant(s)
	return err == nil || errors.Is(err, ErrMissingZone)
}

// FormatInstant renders t in UTC with nanosecond precision.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
