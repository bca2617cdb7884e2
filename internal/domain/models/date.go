package models

import (
	"strconv"
	"strings"
	"time"
)

var postingDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	PostingDateLayout,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
}

// ParsePostingDate understands the layouts seen across sources, including
// "Posted March 5, 2025" style labels and epoch seconds or milliseconds.
// It returns nil when nothing matches.
func ParsePostingDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "Posted"))
	if s == "" {
		return nil
	}

	for _, layout := range postingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		var t time.Time
		if n > 1_000_000_000_000 {
			t = time.UnixMilli(n).UTC()
		} else {
			t = time.Unix(n, 0).UTC()
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}

	return nil
}
