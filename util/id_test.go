package util

import (
	"regexp"
	"testing"
	"time"
)

func TestGenerateProductID_Format(t *testing.T) {
	id := GenerateProductID()
	r := regexp.MustCompile(`^product_[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !r.MatchString(id) {
		t.Fatalf("id %s does not match expected format", id)
	}
	if GenerateProductID() == id {
		t.Fatal("expected distinct ids")
	}
}

func TestFormatAndParseTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 6, 789_000_000, time.FixedZone("X", 3600))
	s := FormatTimestamp(ts)
	if s != "2024-03-09T13:05:06.789Z" {
		t.Fatalf("unexpected timestamp %s", s)
	}
	if !ParseTimestamp(s).Equal(ts) {
		t.Fatalf("round trip mismatch for %s", s)
	}
	if !ParseTimestamp("yesterday").IsZero() {
		t.Fatal("garbage should parse to zero time")
	}
}

func TestNextTimestamp(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := FormatTimestamp(now)

	if got := NextTimestamp(prev, now); got != "2024-01-01T00:00:00.001Z" {
		t.Fatalf("expected bump by one millisecond, got %s", got)
	}
	later := now.Add(time.Second)
	if got := NextTimestamp(prev, later); got != FormatTimestamp(later) {
		t.Fatalf("expected clock time, got %s", got)
	}
	if got := NextTimestamp("", now); got != prev {
		t.Fatalf("expected clock time without previous value, got %s", got)
	}
}
