package chart

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/domain/repository"
	"ChartDeck/pkg/logger"
)

// IndicatorBackfill computes an indicator array from closes. Warm-up
// positions are nil.
type IndicatorBackfill func(key models.OverlayKey, closes []float64) ([]*float64, error)

// TimeframeListener is told when the view switches interval so the fetch
// side can load the matching payload.
type TimeframeListener func(symbol string, iv repository.Interval)

// ApplyResult describes one applied payload.
type ApplyResult struct {
	Bars      int             `json:"bars"`
	Report    NormalizeReport `json:"-"`
	Dropped   int             `json:"dropped"`
	Reconcile ReconcileResult `json:"reconcile"`
}

// ViewState is a read-only snapshot of a view.
type ViewState struct {
	Symbol    string               `json:"symbol"`
	Interval  repository.Interval  `json:"interval"`
	Revision  int64                `json:"revision,omitempty"`
	Bars      int                  `json:"bars"`
	Config    models.OverlayConfig `json:"config"`
	Live      []string             `json:"live_overlays"`
	Legend    Legend               `json:"legend"`
	Maximized bool                 `json:"maximized"`
}

type viewOptions struct {
	logger    *logger.Logger
	metrics   repository.Metrics
	backfill  IndicatorBackfill
	listeners []TimeframeListener
}

type ViewOption func(*viewOptions)

func WithViewLogger(l *logger.Logger) ViewOption {
	return func(o *viewOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithViewMetrics(m repository.Metrics) ViewOption {
	return func(o *viewOptions) { o.metrics = m }
}

// WithBackfill computes missing or stale indicator arrays for enabled
// overlays locally instead of leaving them unavailable.
func WithBackfill(fn IndicatorBackfill) ViewOption {
	return func(o *viewOptions) { o.backfill = fn }
}

func WithTimeframeListener(fn TimeframeListener) ViewOption {
	return func(o *viewOptions) {
		if fn != nil {
			o.listeners = append(o.listeners, fn)
		}
	}
}

// View binds a Session to a (symbol, interval) selection and its overlay
// preferences. All methods are safe for concurrent use and run one at a time.
type View struct {
	mu sync.Mutex

	session    *Session
	prefs      repository.PreferenceRepository
	normalizer *Normalizer
	logger     *logger.Logger
	metrics    repository.Metrics
	backfill   IndicatorBackfill
	listeners  []TimeframeListener

	symbol      string
	interval    repository.Interval
	config      models.OverlayConfig
	indicators  IndicatorSet
	revision    int64
	hasRevision bool
}

// NewView loads the overlay config for the selection and takes ownership of session.
func NewView(ctx context.Context, session *Session, prefs repository.PreferenceRepository, symbol string, iv repository.Interval, opts ...ViewOption) (*View, error) {
	if session == nil {
		return nil, fmt.Errorf("new view: %w", ErrSessionClosed)
	}
	if !repository.IsValidInterval(iv) {
		return nil, fmt.Errorf("new view: %w: %q", ErrInvalidInterval, iv)
	}
	o := viewOptions{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	symbol = normalizeSymbol(symbol)
	v := &View{
		session:    session,
		prefs:      prefs,
		normalizer: NewNormalizer(o.logger, o.metrics),
		logger:     o.logger.With(logger.String("symbol", symbol)),
		metrics:    o.metrics,
		backfill:   o.backfill,
		listeners:  o.listeners,
		symbol:     symbol,
		interval:   iv,
		indicators: IndicatorSet{},
	}
	v.config = prefs.Get(ctx, symbol, iv)
	return v, nil
}

// Selection returns the current symbol and interval.
func (v *View) Selection() (string, repository.Interval) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.symbol, v.interval
}

// Matches reports whether a payload for symbol and interval targets this view.
func (v *View) Matches(symbol, interval string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return normalizeSymbol(symbol) == v.symbol && repository.Interval(interval) == v.interval
}

// ApplyPayload replaces the series with the payload bars, then reconciles
// overlays against the new series and indicators. Payloads for another
// selection, or older than the last applied revision, are discarded whole.
func (v *View) ApplyPayload(ctx context.Context, p *models.AnalysisPayload) (ApplyResult, error) {
	start := time.Now()
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session.Closed() {
		return ApplyResult{}, ErrSessionClosed
	}
	iv := repository.Interval(p.Interval)
	if !repository.IsValidInterval(iv) {
		return ApplyResult{}, fmt.Errorf("%w: %q", ErrInvalidInterval, p.Interval)
	}
	if normalizeSymbol(p.Symbol) != v.symbol || iv != v.interval {
		return ApplyResult{}, fmt.Errorf("%w: payload %s/%s, view %s/%s", ErrSuperseded, p.Symbol, p.Interval, v.symbol, v.interval)
	}
	if p.Revision > 0 && v.hasRevision && p.Revision < v.revision {
		return ApplyResult{}, fmt.Errorf("%w: revision %d < %d", ErrSuperseded, p.Revision, v.revision)
	}

	series, report := v.normalizer.Normalize(v.symbol, p.Bars, iv)
	indicators := IndicatorSet(p.Indicators).Clone()
	v.fillMissing(indicators, series)

	if err := v.session.SetData(series); err != nil {
		return ApplyResult{}, fmt.Errorf("apply payload: %w", err)
	}
	v.indicators = indicators
	if p.Revision > 0 {
		v.revision = p.Revision
		v.hasRevision = true
	}

	res := v.session.Overlays().Reconcile(v.config, v.indicators, series)
	v.logger.Debug("payload applied",
		logger.String("interval", string(iv)),
		logger.Int("bars", series.Len()),
		logger.Int("dropped", len(report.Dropped)),
		logger.Int("created", len(res.Created)),
		logger.Int("removed", len(res.Removed)),
	)
	if v.metrics != nil {
		v.metrics.RecordLatency("apply_payload", time.Since(start).Seconds())
	}
	return ApplyResult{Bars: series.Len(), Report: report, Dropped: len(report.Dropped), Reconcile: res}, nil
}

// OnToggleOverlay flips the enabled flag of the overlay at index.
func (v *View) OnToggleOverlay(ctx context.Context, index int) error {
	return v.mutate(ctx, "toggle", func(cfg *models.OverlayConfig) error {
		if index < 0 || index >= len(cfg.Overlays) {
			return fmt.Errorf("%w: %d", ErrOverlayIndex, index)
		}
		cfg.Overlays[index].Enabled = !cfg.Overlays[index].Enabled
		return nil
	})
}

// UpdateOverlay replaces the descriptor at index.
func (v *View) UpdateOverlay(ctx context.Context, index int, d models.OverlayDescriptor) error {
	return v.mutate(ctx, "edit", func(cfg *models.OverlayConfig) error {
		if index < 0 || index >= len(cfg.Overlays) {
			return fmt.Errorf("%w: %d", ErrOverlayIndex, index)
		}
		if err := checkDescriptor(d); err != nil {
			return err
		}
		for i, o := range cfg.Overlays {
			if i != index && o.Key() == d.Key() {
				return fmt.Errorf("%w: %s", ErrDuplicateOverlay, d.Key())
			}
		}
		cfg.Overlays[index] = d
		return nil
	})
}

// AddOverlay appends a descriptor.
func (v *View) AddOverlay(ctx context.Context, d models.OverlayDescriptor) error {
	return v.mutate(ctx, "add", func(cfg *models.OverlayConfig) error {
		if err := checkDescriptor(d); err != nil {
			return err
		}
		for _, o := range cfg.Overlays {
			if o.Key() == d.Key() {
				return fmt.Errorf("%w: %s", ErrDuplicateOverlay, d.Key())
			}
		}
		cfg.Overlays = append(cfg.Overlays, d)
		return nil
	})
}

// RemoveOverlay deletes the descriptor at index.
func (v *View) RemoveOverlay(ctx context.Context, index int) error {
	return v.mutate(ctx, "delete", func(cfg *models.OverlayConfig) error {
		if index < 0 || index >= len(cfg.Overlays) {
			return fmt.Errorf("%w: %d", ErrOverlayIndex, index)
		}
		cfg.Overlays = append(cfg.Overlays[:index], cfg.Overlays[index+1:]...)
		return nil
	})
}

// mutate edits a copy of the config, persists it and reconciles against the
// current series.
func (v *View) mutate(ctx context.Context, op string, fn func(*models.OverlayConfig) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session.Closed() {
		return ErrSessionClosed
	}
	next := v.config.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	v.config = next
	if err := v.prefs.Set(ctx, v.symbol, v.interval, next); err != nil {
		v.logger.Warn("persist overlay config", logger.String("op", op), logger.Error(err))
	}

	series := v.session.Series()
	v.fillMissing(v.indicators, series)
	res := v.session.Overlays().Reconcile(v.config, v.indicators, series)
	v.logger.Debug("overlay config changed",
		logger.String("op", op),
		logger.Int("created", len(res.Created)),
		logger.Int("removed", len(res.Removed)),
	)
	return nil
}

// OnTimeframeChange switches the view to iv. The series and overlays are
// cleared until a payload for the new selection arrives.
func (v *View) OnTimeframeChange(ctx context.Context, iv repository.Interval) error {
	v.mu.Lock()
	if v.session.Closed() {
		v.mu.Unlock()
		return ErrSessionClosed
	}
	if !repository.IsValidInterval(iv) {
		v.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrInvalidInterval, iv)
	}
	if iv == v.interval {
		v.mu.Unlock()
		return nil
	}

	v.interval = iv
	v.config = v.prefs.Get(ctx, v.symbol, iv)
	v.indicators = IndicatorSet{}
	v.revision, v.hasRevision = 0, false
	v.session.Overlays().Clear()
	err := v.session.SetData(NormalizedSeries{Interval: iv})
	symbol, listeners := v.symbol, v.listeners
	v.mu.Unlock()

	if err != nil {
		return fmt.Errorf("clear series: %w", err)
	}
	v.logger.Info("timeframe changed", logger.String("interval", string(iv)))
	for _, fn := range listeners {
		fn(symbol, iv)
	}
	return nil
}

// SetMaximized sets the maximize/restore render mode read by the layout.
func (v *View) SetMaximized(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session.SetMaximized(on)
}

func (v *View) Maximized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Maximized()
}

// Resize forwards new pixel dimensions to the surface.
func (v *View) Resize(width, height int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Resize(width, height)
}

// Pointer routes a pointer event to the legend and returns the result.
func (v *View) Pointer(e PointerEvent) (Legend, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.InjectPointer(e)
}

func (v *View) Legend() Legend {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Legend().Current()
}

// Config returns a copy of the current overlay config.
func (v *View) Config() models.OverlayConfig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.config.Clone()
}

func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	live := v.session.Overlays().Live()
	names := make([]string, len(live))
	for i, k := range live {
		names[i] = k.String()
	}
	return ViewState{
		Symbol:    v.symbol,
		Interval:  v.interval,
		Revision:  v.revision,
		Bars:      v.session.Series().Len(),
		Config:    v.config.Clone(),
		Live:      names,
		Legend:    v.session.Legend().Current(),
		Maximized: v.session.Maximized(),
	}
}

// Snapshot renders the surface into w.
func (v *View) Snapshot(w io.Writer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Snapshot(w, fmt.Sprintf("%s %s", v.symbol, v.interval))
}

// Close releases the session. Safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session.Close()
}

func (v *View) fillMissing(indicators IndicatorSet, series NormalizedSeries) {
	if v.backfill == nil || series.Empty() {
		return
	}
	var closes []float64
	for _, key := range v.config.EnabledKeys() {
		if indicators.Available(key, series) {
			continue
		}
		if closes == nil {
			closes = series.Closes()
		}
		values, err := v.backfill(key, closes)
		if err != nil {
			v.logger.Warn("indicator backfill", logger.String("overlay", key.String()), logger.Error(err))
			continue
		}
		indicators[key.String()] = values
	}
}

func checkDescriptor(d models.OverlayDescriptor) error {
	if !d.Kind.IsValid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidOverlay, d.Kind)
	}
	if d.Period < 1 || d.Period > 1000 {
		return fmt.Errorf("%w: period %d", ErrInvalidOverlay, d.Period)
	}
	if d.StrokeWidth < 1 || d.StrokeWidth > 10 {
		return fmt.Errorf("%w: stroke width %d", ErrInvalidOverlay, d.StrokeWidth)
	}
	if d.Color == "" {
		return fmt.Errorf("%w: color required", ErrInvalidOverlay)
	}
	return nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
