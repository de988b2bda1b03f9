package util

import (
	"strings"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateRunes("abcdef", 3); got != "abc" {
		t.Fatalf("got %q", got)
	}
	// multi-byte characters count as one
	s := strings.Repeat("日", 5)
	if got := TruncateRunes(s, 3); got != strings.Repeat("日", 3) {
		t.Fatalf("got %q", got)
	}
	if got := TruncateRunes("abc", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}
