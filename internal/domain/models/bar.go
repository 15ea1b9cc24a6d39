package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TimeKey is the canonical ordering key of a bar. Sub-daily series use Unix
// seconds, daily and coarser series use a YYYY-MM-DD calendar date.
type TimeKey struct {
	Unix int64
	Day  string
}

// UnixKey builds an epoch-seconds key.
func UnixKey(sec int64) TimeKey { return TimeKey{Unix: sec} }

// DayKey builds a calendar-date key.
func DayKey(day string) TimeKey { return TimeKey{Day: day} }

// IsDay reports whether the key is a calendar date.
func (k TimeKey) IsDay() bool { return k.Day != "" }

// Less orders date keys lexicographically and epoch keys numerically.
func (k TimeKey) Less(o TimeKey) bool {
	if k.IsDay() || o.IsDay() {
		return k.Day < o.Day
	}
	return k.Unix < o.Unix
}

func (k TimeKey) String() string {
	if k.IsDay() {
		return k.Day
	}
	return strconv.FormatInt(k.Unix, 10)
}

// MarshalJSON emits a number for epoch keys and a string for dates, which is
// what browser charting libraries accept as a time value.
func (k TimeKey) MarshalJSON() ([]byte, error) {
	if k.IsDay() {
		return json.Marshal(k.Day)
	}
	return []byte(strconv.FormatInt(k.Unix, 10)), nil
}

func (k *TimeKey) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = TimeKey{Day: s}
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("time key: %w", err)
	}
	*k = TimeKey{Unix: n}
	return nil
}

// Bar is one OHLCV sample for a time bucket.
type Bar struct {
	Time   TimeKey `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Up reports whether the bar closed at or above its open.
func (b Bar) Up() bool { return b.Close >= b.Open }

// RawBar is a bar as delivered by the analysis service. Fields are kept
// untyped so one malformed bar can be dropped without rejecting the payload.
type RawBar struct {
	Date   any `json:"date"`
	Open   any `json:"open"`
	High   any `json:"high"`
	Low    any `json:"low"`
	Close  any `json:"close"`
	Volume any `json:"volume"`
}
