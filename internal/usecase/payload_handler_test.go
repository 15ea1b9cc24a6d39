package usecase

import (
	"context"
	"errors"
	"testing"

	pkgkafka "ChartDeck/pkg/kafka"
)

func TestPayloadHandlerAppliesToMatchingSessions(t *testing.T) {
	m := &payloadCounter{}
	s, _ := newSessions(t, WithSessionsMetrics(m))
	id := openChart(t, s, "main", "AAPL", "1d")
	h := NewPayloadHandler("analysis.payloads", s, nil, m)

	if h.Topic() != "analysis.payloads" {
		t.Fatalf("topic = %q", h.Topic())
	}
	if err := h.Handle(context.Background(), payloadJSON("AAPL", 4)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	st, _ := s.State(id)
	if st.Bars != 4 {
		t.Fatalf("bars = %d, want 4", st.Bars)
	}
	if m.count("applied") != 1 {
		t.Fatalf("applied metric = %d", m.count("applied"))
	}
}

func TestPayloadHandlerRejectsMalformedMessages(t *testing.T) {
	m := &payloadCounter{}
	s, _ := newSessions(t)
	h := NewPayloadHandler("analysis.payloads", s, nil, m)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"symbol":`},
		{"missing symbol", `{"interval":"1d","bars":[]}`},
		{"bad interval", `{"symbol":"AAPL","interval":"2d","bars":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Handle(context.Background(), []byte(tt.body))
			if !errors.Is(err, pkgkafka.ErrPermanent) {
				t.Fatalf("err = %v, want permanent", err)
			}
		})
	}
	if m.count("invalid") != len(tests) {
		t.Fatalf("invalid metric = %d", m.count("invalid"))
	}
}

func TestPayloadHandlerWithoutSessions(t *testing.T) {
	s, _ := newSessions(t)
	h := NewPayloadHandler("t", s, nil, nil)
	if err := h.Handle(context.Background(), payloadJSON("AAPL", 2)); err != nil {
		t.Fatalf("payload with no audience should be dropped quietly: %v", err)
	}
}
