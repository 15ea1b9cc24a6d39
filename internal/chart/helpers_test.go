package chart_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/domain/repository"
	"ChartDeck/internal/surface"
)

func f(v float64) *float64 { return &v }

func values(n int, fill func(i int) *float64) []*float64 {
	out := make([]*float64, n)
	for i := range out {
		out[i] = fill(i)
	}
	return out
}

func dailyBars(n int) []models.RawBar {
	bars := make([]models.RawBar, n)
	for i := range bars {
		day := 1 + i
		bars[i] = models.RawBar{
			Date:   dayString(day),
			Open:   100.0 + float64(i),
			High:   110.0 + float64(i),
			Low:    95.0 + float64(i),
			Close:  105.0 + float64(i),
			Volume: 1000.0,
		}
	}
	return bars
}

func dayString(day int) string {
	return fmt.Sprintf("2024-01-%02d", day)
}

func openSession(t *testing.T, opts ...surface.Option) (*chart.Session, *surface.Retained, *surface.VirtualContainer) {
	t.Helper()
	factory := surface.NewFactory(opts...)
	c := surface.NewContainer("main", 800, 400)
	s, err := chart.Open(factory, c)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r, ok := factory.Lookup("main")
	if !ok {
		t.Fatalf("surface not registered")
	}
	return s, r, c
}

func liveNames(r *chart.Reconciler) []string {
	keys := r.Live()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type memPrefs struct {
	mu   sync.Mutex
	data map[string]models.OverlayConfig
	sets int
}

func newMemPrefs() *memPrefs { return &memPrefs{data: map[string]models.OverlayConfig{}} }

func (m *memPrefs) Get(_ context.Context, symbol string, iv repository.Interval) models.OverlayConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.data[symbol+"|"+string(iv)]; ok {
		return cfg.Clone()
	}
	return models.OverlayConfig{
		Symbol:   symbol,
		Interval: string(iv),
		Overlays: []models.OverlayDescriptor{
			{Kind: models.KindSMA, Period: 50, Color: "#3B82F6", StrokeWidth: 2, Enabled: true},
			{Kind: models.KindSMA, Period: 200, Color: "#EF4444", StrokeWidth: 2, Enabled: true},
			{Kind: models.KindEMA, Period: 21, Color: "#10B981", StrokeWidth: 2, Enabled: false},
		},
	}
}

func (m *memPrefs) Set(_ context.Context, symbol string, iv repository.Interval, cfg models.OverlayConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[symbol+"|"+string(iv)] = cfg.Clone()
	m.sets++
	return nil
}
