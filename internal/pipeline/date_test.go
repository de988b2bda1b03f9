package pipeline

import (
	"testing"
	"time"
)

func TestReviewDateMillis_MySQLDatetime(t *testing.T) {
	ms, ok := reviewDateMillis("2024-03-01 10:00:00")
	if !ok {
		t.Fatal("expected parse")
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if ms != want {
		t.Fatalf("ms = %d, want %d (UTC midnight, time of day dropped)", ms, want)
	}
}

func TestReviewDateMillis_RFC3339WithOffset(t *testing.T) {
	// 23:30 -05:00 is already March 2nd in UTC; the calendar date in UTC wins.
	ms, ok := reviewDateMillis("2024-03-01T23:30:00-05:00")
	if !ok {
		t.Fatal("expected parse")
	}
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	if ms != want {
		t.Fatalf("ms = %d, want %d", ms, want)
	}
}

func TestReviewDateMillis_DateOnly(t *testing.T) {
	ms, ok := reviewDateMillis("2024-12-31")
	if !ok {
		t.Fatal("expected parse")
	}
	want := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC).UnixMilli()
	if ms != want {
		t.Fatalf("ms = %d, want %d", ms, want)
	}
}

func TestReviewDateMillis_Unparseable(t *testing.T) {
	for _, raw := range []string{"", "   ", "yesterday", "31/12/2024"} {
		if _, ok := reviewDateMillis(raw); ok {
			t.Fatalf("expected no parse for %q", raw)
		}
	}
}
