package repository

import (
	"context"

	"ChartDeck/internal/domain/models"
)

// PreferenceRepository persists overlay configuration per (symbol, interval).
type PreferenceRepository interface {
	Get(ctx context.Context, symbol string, iv Interval) models.OverlayConfig
	Set(ctx context.Context, symbol string, iv Interval, cfg models.OverlayConfig) error
}

type Metrics interface {
	RecordDroppedBar(reason string)
	RecordOverlayOp(op string)
	RecordPayload(result string)
	RecordSessions(delta int)
	RecordLatency(op string, seconds float64)
}
