package util

import (
	"strconv"
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime tries RFC3339, RFC3339Nano, common naive layouts (read as UTC),
// and unix seconds or milliseconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return FromEpoch(ts), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FromEpoch converts epoch seconds, or milliseconds when ts is too large to
// be seconds, to UTC time.
func FromEpoch(ts int64) time.Time {
	if ts > 1e12 || ts < -1e12 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// CalendarDate returns the leading YYYY-MM-DD of s without any timezone
// conversion, or false if s does not start with a valid date.
func CalendarDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return "", false
	}
	day := s[:10]
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return "", false
	}
	if len(s) > 10 && s[10] != 'T' && s[10] != ' ' {
		return "", false
	}
	return day, true
}
