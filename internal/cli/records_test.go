package cli

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("2026-03-01 08:30")
	if err != nil {
		t.Fatalf("full timestamp: %v", err)
	}
	want := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}

	got, err = parseTimestamp("2026-03-01")
	if err != nil {
		t.Fatalf("date only: %v", err)
	}
	if !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date-only parse %v", got)
	}

	if got, err = parseTimestamp(""); err != nil || got.IsZero() {
		t.Fatalf("empty input should default to now: %v %v", got, err)
	}

	if _, err = parseTimestamp("03/01/2026"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}

func TestParsePositiveFloat(t *testing.T) {
	v, err := parsePositiveFloat("volume", "120.5")
	if err != nil || v != 120.5 {
		t.Fatalf("got %v %v", v, err)
	}
	if _, err := parsePositiveFloat("volume", "abc"); err == nil {
		t.Fatal("expected error for non-number")
	}
	if _, err := parsePositiveFloat("volume", "-1"); err == nil {
		t.Fatal("expected error for negative value")
	}
	if v, err := parsePositiveFloat("volume", "0"); err != nil || v != 0 {
		t.Fatalf("zero should parse: %v %v", v, err)
	}
}
