// Package util provides identifier and timestamp helpers for the catalog.
package util

import (
	"time"

	"github.com/google/uuid"
)

// TimestampLayout matches the ISO-8601 form used in stored records,
// always UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// GenerateProductID returns a fresh, opaque product identifier.
func GenerateProductID() string {
	return "product_" + uuid.NewString()
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp. Unparseable input yields the
// zero time so that such records sort first.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NextTimestamp formats now, advancing it past prev if the clock has not
// moved on at millisecond resolution.
func NextTimestamp(prev string, now time.Time) string {
	p := ParseTimestamp(prev)
	now = now.UTC().Truncate(time.Millisecond)
	if !p.IsZero() && !now.After(p) {
		now = p.Add(time.Millisecond)
	}
	return FormatTimestamp(now)
}
