package pipeline

import (
	"strings"
	"time"
)

// Layouts the scrape provider and the DB have been seen to emit.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// reviewDateMillis converts a raw review date string to epoch milliseconds
// at UTC midnight of its calendar date. Unparseable or empty input returns
// ok=false; the caller omits the property instead of failing the event.
func reviewDateMillis(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli(), true
	}
	return 0, false
}
