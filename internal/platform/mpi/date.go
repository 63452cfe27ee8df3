package mpi

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses a birth date in any accepted layout. The bool is false for
// missing or malformed input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateSimilarity scores two birth dates: same day 100, same month 80, same year 50,
// one calendar year apart 30, anything else (including unparseable input) 0.
func DateSimilarity(a, b string) int {
	da, ok := ParseDate(a)
	if !ok {
		return 0
	}
	db, ok := ParseDate(b)
	if !ok {
		return 0
	}

	ya, ma, dda := da.Date()
	yb, mb, ddb := db.Date()
	switch {
	case ya == yb && ma == mb && dda == ddb:
		return 100
	case ya == yb && ma == mb:
		return 80
	case ya == yb:
		return 50
	case ya-yb == 1 || yb-ya == 1:
		return 30
	default:
		return 0
	}
}
