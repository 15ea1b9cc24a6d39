package chart_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/domain/repository"
)

func TestEncodeTime(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		iv   repository.Interval
		want models.TimeKey
	}{
		{"daily keeps calendar date", "2024-01-02T23:30:00-05:00", repository.Interval1d, models.DayKey("2024-01-02")},
		{"daily plain date", "2024-01-02", repository.Interval1d, models.DayKey("2024-01-02")},
		{"weekly space separated", "2024-01-02 09:30:00", repository.Interval1wk, models.DayKey("2024-01-02")},
		{"daily from epoch", float64(1704207600), repository.Interval1d, models.DayKey("2024-01-02")},
		{"daily from time value", time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), repository.Interval1d, models.DayKey("2024-01-02")},
		{"intraday rfc3339", "2024-01-02T15:00:00Z", repository.Interval15m, models.UnixKey(1704207600)},
		{"intraday offset to utc", "2024-01-02T09:30:00-05:00", repository.Interval1h, models.UnixKey(1704205800)},
		{"intraday naive is utc", "2024-01-02 09:30:00", repository.Interval15m, models.UnixKey(1704187800)},
		{"intraday epoch millis", json.Number("1704207600000"), repository.Interval15m, models.UnixKey(1704207600)},
		{"intraday epoch seconds", int64(1704207600), repository.Interval1h, models.UnixKey(1704207600)},
		{"intraday time value", time.Date(2024, 1, 2, 15, 0, 0, 0, time.FixedZone("X", 3600)), repository.Interval15m, models.UnixKey(1704204000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chart.EncodeTime(tt.raw, tt.iv)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeTimeRejects(t *testing.T) {
	for _, raw := range []any{nil, "", "not a date", "2024-13-45", true, float64(-1)} {
		if _, err := chart.EncodeTime(raw, repository.Interval15m); !errors.Is(err, chart.ErrDataQuality) {
			t.Fatalf("raw %v: expected data quality error, got %v", raw, err)
		}
	}
	if _, err := chart.EncodeTime("garbage", repository.Interval1d); !errors.Is(err, chart.ErrDataQuality) {
		t.Fatalf("expected data quality error for daily garbage, got %v", err)
	}
}
