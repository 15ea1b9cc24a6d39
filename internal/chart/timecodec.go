package chart

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/domain/repository"
	"ChartDeck/pkg/util"
)

const dayLayout = "2006-01-02"

// EncodeTime maps a raw bar timestamp to its ordering key. Sub-daily
// intervals key by UTC epoch seconds. Daily and coarser intervals key by
// calendar date only, so a session is never split or duplicated by a
// timezone offset.
func EncodeTime(raw any, iv repository.Interval) (models.TimeKey, error) {
	switch v := raw.(type) {
	case nil:
		return models.TimeKey{}, fmt.Errorf("%w: missing timestamp", ErrDataQuality)
	case string:
		return encodeString(v, iv)
	case time.Time:
		return encodeTime(v, iv), nil
	case *time.Time:
		if v == nil {
			return models.TimeKey{}, fmt.Errorf("%w: missing timestamp", ErrDataQuality)
		}
		return encodeTime(*v, iv), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return models.TimeKey{}, fmt.Errorf("%w: timestamp %q: %v", ErrDataQuality, v, err)
		}
		return encodeTime(util.FromEpoch(n), iv), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return models.TimeKey{}, fmt.Errorf("%w: timestamp %v", ErrDataQuality, v)
		}
		return encodeTime(util.FromEpoch(int64(v)), iv), nil
	case int64:
		return encodeTime(util.FromEpoch(v), iv), nil
	case int:
		return encodeTime(util.FromEpoch(int64(v)), iv), nil
	default:
		return models.TimeKey{}, fmt.Errorf("%w: unsupported timestamp type %T", ErrDataQuality, raw)
	}
}

func encodeString(s string, iv repository.Interval) (models.TimeKey, error) {
	if iv.IsDaily() {
		if day, ok := util.CalendarDate(s); ok {
			return models.DayKey(day), nil
		}
	}
	t, ok := util.ParseTime(s)
	if !ok {
		return models.TimeKey{}, fmt.Errorf("%w: unparsable timestamp %q", ErrDataQuality, s)
	}
	return encodeTime(t, iv), nil
}

func encodeTime(t time.Time, iv repository.Interval) models.TimeKey {
	t = t.UTC()
	if iv.IsDaily() {
		return models.DayKey(t.Format(dayLayout))
	}
	return models.UnixKey(t.Unix())
}
