package domain

import (
	"testing"
	"time"
)

func TestOrderNumberFormat(t *testing.T) {
	now := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)
	got := OrderNumber(now)

	if len(got) != 15 {
		t.Fatalf("expected 15 characters, got %d (%q)", len(got), got)
	}
	if got[:9] != "ORD240115" {
		t.Fatalf("expected prefix ORD240115, got %q", got[:9])
	}

	wantSuffix := now.UnixMilli() % 1_000_000
	var suffix int64
	for _, ch := range got[9:] {
		if ch < '0' || ch > '9' {
			t.Fatalf("non-digit suffix character in %q", got)
		}
		suffix = suffix*10 + int64(ch-'0')
	}
	if suffix != wantSuffix {
		t.Fatalf("expected suffix %06d, got %q", wantSuffix, got[9:])
	}
}

func TestOrderNumberIsPure(t *testing.T) {
	now := time.Date(2025, time.December, 3, 23, 59, 59, 123_000_000, time.UTC)
	if OrderNumber(now) != OrderNumber(now) {
		t.Fatal("same instant must yield the same order number")
	}
}
