package chart_test

import (
	"math/rand"
	"testing"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/domain/repository"
	"ChartDeck/pkg/metrics"
)

func TestNormalizeDuplicateDayLastWins(t *testing.T) {
	raw := []models.RawBar{
		{Date: "2024-01-01", Open: 100.0, High: 110.0, Low: 90.0, Close: 105.0},
		{Date: "2024-01-01", Open: 101.0, High: 111.0, Low: 91.0, Close: 106.0},
	}
	series, report := chart.Normalize(raw, repository.Interval1d)
	if series.Len() != 1 {
		t.Fatalf("expected 1 bar, got %d", series.Len())
	}
	b := series.Bars[0]
	if b.Time != models.DayKey("2024-01-01") || b.Open != 101 || b.Close != 106 {
		t.Fatalf("unexpected bar %+v", b)
	}
	if report.Duplicates != 1 || len(report.Dropped) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	series, report := chart.Normalize(nil, repository.Interval15m)
	if !series.Empty() || report.Input != 0 {
		t.Fatalf("expected empty series")
	}
}

func TestNormalizeDropsBadBars(t *testing.T) {
	raw := []models.RawBar{
		{Date: "bogus", Open: 1.0, High: 1.0, Low: 1.0, Close: 1.0},
		{Date: "2024-01-02", Open: "abc", High: 1.0, Low: 1.0, Close: 1.0},
		{Date: "2024-01-03", Open: nil, High: 1.0, Low: 1.0, Close: 1.0},
		{Date: "2024-01-04", Open: "2.5", High: 3, Low: int64(2), Close: 2.75},
	}
	series, report := chart.Normalize(raw, repository.Interval1d)
	if series.Len() != 1 {
		t.Fatalf("expected 1 surviving bar, got %d", series.Len())
	}
	if series.Bars[0].Open != 2.5 || series.Bars[0].Volume != 0 {
		t.Fatalf("unexpected bar %+v", series.Bars[0])
	}
	if len(report.Dropped) != 3 {
		t.Fatalf("expected 3 dropped, got %d", len(report.Dropped))
	}
	if report.Dropped[0].Reason != "timestamp" || report.Dropped[1].Reason != "price" {
		t.Fatalf("unexpected reasons %+v", report.Dropped)
	}
}

func TestNormalizeRandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := rng.Intn(60)
		raw := make([]models.RawBar, n)
		last := map[int64]float64{}
		for i := range raw {
			sec := int64(1704067200 + 900*rng.Intn(20))
			close := float64(rng.Intn(1000))
			raw[i] = models.RawBar{Date: sec, Open: 1.0, High: 1.0, Low: 1.0, Close: close}
			last[sec] = close
		}
		series, _ := chart.Normalize(raw, repository.Interval15m)
		if series.Len() != len(last) {
			t.Fatalf("round %d: expected %d bars, got %d", round, len(last), series.Len())
		}
		for i, b := range series.Bars {
			if i > 0 && !series.Bars[i-1].Time.Less(b.Time) {
				t.Fatalf("round %d: keys not strictly increasing at %d", round, i)
			}
			if last[b.Time.Unix] != b.Close {
				t.Fatalf("round %d: key %v kept close %v, want last %v", round, b.Time, b.Close, last[b.Time.Unix])
			}
		}
	}
}

func TestNormalizeDailyOrderIsLexicographic(t *testing.T) {
	raw := []models.RawBar{
		{Date: "2024-02-01", Open: 1.0, High: 1.0, Low: 1.0, Close: 1.0},
		{Date: "2023-12-31", Open: 1.0, High: 1.0, Low: 1.0, Close: 1.0},
		{Date: "2024-01-15T20:00:00Z", Open: 1.0, High: 1.0, Low: 1.0, Close: 1.0},
	}
	series, _ := chart.Normalize(raw, repository.Interval1d)
	want := []string{"2023-12-31", "2024-01-15", "2024-02-01"}
	for i, b := range series.Bars {
		if b.Time.Day != want[i] {
			t.Fatalf("index %d: got %s want %s", i, b.Time.Day, want[i])
		}
	}
}

func TestNormalizerCountsDrops(t *testing.T) {
	m := &countingMetrics{}
	n := chart.NewNormalizer(nil, m)
	raw := []models.RawBar{{Date: "bad", Open: 1.0, High: 1.0, Low: 1.0, Close: 1.0}}
	n.Normalize("AAPL", raw, repository.Interval1d)
	if m.dropped["timestamp"] != 1 {
		t.Fatalf("expected one timestamp drop, got %v", m.dropped)
	}
}

type countingMetrics struct {
	metrics.Noop
	dropped map[string]int
	ops     map[string]int
}

func (c *countingMetrics) RecordDroppedBar(reason string) {
	if c.dropped == nil {
		c.dropped = map[string]int{}
	}
	c.dropped[reason]++
}

func (c *countingMetrics) RecordOverlayOp(op string) {
	if c.ops == nil {
		c.ops = map[string]int{}
	}
	c.ops[op]++
}
