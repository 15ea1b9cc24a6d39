package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/repository"
	"ChartDeck/internal/surface"
	"ChartDeck/pkg/cache"
	"ChartDeck/pkg/metrics"
)

type payloadCounter struct {
	metrics.Noop
	mu      sync.Mutex
	results map[string]int
}

func (c *payloadCounter) RecordPayload(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[result]++
}

func (c *payloadCounter) count(result string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[result]
}

func newSessions(t *testing.T, opts ...SessionsOption) (*ChartSessions, *surface.Factory) {
	t.Helper()
	kv := cache.NewMemoryCache()
	t.Cleanup(func() { _ = kv.Close() })
	factory := surface.NewFactory()
	s := NewChartSessions(factory, repository.NewPreferenceStore(kv, nil), opts...)
	t.Cleanup(s.CloseAll)
	return s, factory
}

func openChart(t *testing.T, s *ChartSessions, container, symbol, interval string) string {
	t.Helper()
	id, err := s.Open(context.Background(), models.OpenChartRequest{
		ContainerID: container,
		Width:       800,
		Height:      400,
		Symbol:      symbol,
		Interval:    interval,
	})
	if err != nil {
		t.Fatalf("open %s: %v", container, err)
	}
	return id
}

func dailyPayload(symbol string, n int) *models.AnalysisPayload {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.RawBar, n)
	for i := range bars {
		bars[i] = models.RawBar{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   100.0 + float64(i),
			High:   110.0 + float64(i),
			Low:    95.0 + float64(i),
			Close:  105.0 + float64(i),
			Volume: 1000.0,
		}
	}
	return &models.AnalysisPayload{Symbol: symbol, Interval: "1d", Bars: bars}
}

func payloadJSON(symbol string, n int) []byte {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := fmt.Sprintf(`{"symbol":%q,"interval":"1d","bars":[`, symbol)
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"date":%q,"open":%d,"high":%d,"low":%d,"close":%d,"volume":1000}`,
			start.AddDate(0, 0, i).Format("2006-01-02"), 100+i, 110+i, 95+i, 105+i)
	}
	return []byte(out + "]}")
}
