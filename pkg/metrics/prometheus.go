package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	droppedBars *prometheus.CounterVec
	overlayOps  *prometheus.CounterVec
	payloads    *prometheus.CounterVec
	sessions    prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder registered on the default registry.
func New() *Recorder {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the recorder on reg (useful for testing).
func NewWith(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		droppedBars: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartdeck_bars_dropped_total",
				Help: "Bars dropped during normalization",
			},
			[]string{"reason"},
		),
		overlayOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartdeck_overlay_ops_total",
				Help: "Overlay reconciliation operations",
			},
			[]string{"op"},
		),
		payloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartdeck_payloads_total",
				Help: "Analysis payloads received by outcome",
			},
			[]string{"result"},
		),
		sessions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "chartdeck_sessions_open",
				Help: "Chart sessions currently open",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartdeck_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDroppedBar records a bar dropped for a data-quality reason.
func (r *Recorder) RecordDroppedBar(reason string) {
	r.droppedBars.WithLabelValues(reason).Inc()
}

// RecordOverlayOp records one create/update/remove/unavailable outcome.
func (r *Recorder) RecordOverlayOp(op string) {
	r.overlayOps.WithLabelValues(op).Inc()
}

// RecordPayload records a payload outcome (applied, superseded, invalid).
func (r *Recorder) RecordPayload(result string) {
	r.payloads.WithLabelValues(result).Inc()
}

// RecordSessions adjusts the open session gauge.
func (r *Recorder) RecordSessions(delta int) {
	r.sessions.Add(float64(delta))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
