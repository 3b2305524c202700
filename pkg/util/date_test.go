package util

import (
	"errors"
	"testing"
	"time"
)

func TestParseInstantRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, err := ParseInstant(s)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseInstantOffset(t *testing.T) {
	got, err := ParseInstant("2024-10-10T12:10:10.123+02:00")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	want := time.Date(2024, 10, 10, 10, 10, 10, 123000000, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseInstantRequiresZone(t *testing.T) {
	_, err := ParseInstant("2024-10-10T10:10:10")
	if !errors.Is(err, ErrMissingZone) {
		t.Fatalf("expected ErrMissingZone, got %v", err)
	}
	if !IsISO8601("2024-10-10T10:10:10") {
		t.Fatalf("zoneless timestamp is still ISO-8601")
	}
}

func TestIsISO8601Rejects(t *testing.T) {
	for _, s := range []string{"", "yesterday", "1728555010", "2024-13-10T10:10:10Z"} {
		if IsISO8601(s) {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}
