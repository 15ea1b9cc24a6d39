package repository

// Interval is the bar granularity of a chart.
type Interval string

const (
	Interval15m Interval = "15m" // intraday, fine
	Interval1h  Interval = "1h"  // intraday, coarse
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
)

// Intervals lists supported intervals from finest to coarsest.
var Intervals = []Interval{Interval15m, Interval1h, Interval1d, Interval1wk}

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case Interval15m, Interval1h, Interval1d, Interval1wk:
		return true
	default:
		return false
	}
}

// IsDaily reports whether bars of this interval are keyed by calendar date.
func (iv Interval) IsDaily() bool {
	return iv == Interval1d || iv == Interval1wk
}

// DefaultInterval returns the default interval.
func DefaultInterval() Interval { return Interval1d }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	switch s {
	case "":
		return DefaultInterval()
	case "1w", "1W", "weekly":
		return Interval1wk
	case "1D", "daily":
		return Interval1d
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}
