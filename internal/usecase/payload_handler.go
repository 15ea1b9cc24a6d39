package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"ChartDeck/internal/domain/models"
	domrepo "ChartDeck/internal/domain/repository"
	pkgkafka "ChartDeck/pkg/kafka"
	"ChartDeck/pkg/logger"
)

// PayloadHandler consumes analysis payloads from Kafka and fans them out to
// the open chart sessions showing the same symbol and interval.
type PayloadHandler struct {
	topic    string
	sessions *ChartSessions
	validate *validator.Validate
	logger   *logger.Logger
	metrics  domrepo.Metrics
}

func NewPayloadHandler(topic string, sessions *ChartSessions, log *logger.Logger, metrics domrepo.Metrics) *PayloadHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PayloadHandler{
		topic:    topic,
		sessions: sessions,
		validate: validator.New(),
		logger:   log,
		metrics:  metrics,
	}
}

func (h *PayloadHandler) Topic() string { return h.topic }

// incoming message schema: AnalysisPayload JSON
func (h *PayloadHandler) Handle(ctx context.Context, b []byte) error {
	var p models.AnalysisPayload
	if err := json.Unmarshal(b, &p); err != nil {
		h.invalid()
		return pkgkafka.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	if err := h.validate.Struct(&p); err != nil {
		h.invalid()
		return pkgkafka.Permanent(fmt.Errorf("validate payload: %w", err))
	}

	applied, err := h.sessions.Broadcast(ctx, &p)
	h.logger.Debug("payload consumed",
		logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
		logger.String("symbol", p.Symbol),
		logger.String("interval", p.Interval),
		logger.Int("bars", len(p.Bars)),
		logger.Int("sessions", applied),
	)
	if err != nil {
		return fmt.Errorf("broadcast payload: %w", err)
	}
	return nil
}

func (h *PayloadHandler) invalid() {
	if h.metrics != nil {
		h.metrics.RecordPayload("invalid")
	}
}

var _ pkgkafka.MessageHandler = (*PayloadHandler)(nil)
