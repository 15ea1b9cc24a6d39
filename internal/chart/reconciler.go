package chart

import (
	"math"
	"sort"

	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/domain/repository"
	"ChartDeck/pkg/logger"
)

// IndicatorSet holds precomputed indicator arrays keyed by "{KIND}_{PERIOD}".
// Arrays are index-aligned with the bars they were computed from; a nil
// element means the indicator has no value there yet.
type IndicatorSet map[string][]*float64

// Clone copies the map. Arrays are shared.
func (s IndicatorSet) Clone() IndicatorSet {
	out := make(IndicatorSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Available reports whether key has backing data matching the series.
func (s IndicatorSet) Available(key models.OverlayKey, series NormalizedSeries) bool {
	values, ok := s[key.String()]
	return ok && !series.Empty() && len(values) == series.Len()
}

// ReconcileResult lists what one reconciliation pass did.
type ReconcileResult struct {
	Created     []models.OverlayKey `json:"created,omitempty"`
	Updated     []models.OverlayKey `json:"updated,omitempty"`
	Removed     []models.OverlayKey `json:"removed,omitempty"`
	Unavailable []models.OverlayKey `json:"unavailable,omitempty"`
	Failed      []models.OverlayKey `json:"failed,omitempty"`
}

// Changed reports whether the pass touched the surface.
func (r ReconcileResult) Changed() bool {
	return len(r.Created)+len(r.Updated)+len(r.Removed) > 0
}

type renderedOverlay struct {
	handle SeriesHandle
	style  SeriesStyle
	points []SeriesPoint
}

// Reconciler owns every overlay handle of one surface and converges them to
// a desired configuration.
type Reconciler struct {
	surface Surface
	live    map[models.OverlayKey]*renderedOverlay
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewReconciler(surface Surface, log *logger.Logger, m repository.Metrics) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{
		surface: surface,
		live:    make(map[models.OverlayKey]*renderedOverlay),
		logger:  log,
		metrics: m,
	}
}

// Reconcile diffs cfg against the live overlays. After it returns the live
// identity set equals the enabled identities whose indicator array length
// equals the bar count. Running it twice with the same inputs makes no
// surface calls the second time.
func (r *Reconciler) Reconcile(cfg models.OverlayConfig, indicators IndicatorSet, series NormalizedSeries) ReconcileResult {
	var res ReconcileResult
	keep := make(map[models.OverlayKey]struct{}, len(cfg.Overlays))
	seen := make(map[models.OverlayKey]struct{}, len(cfg.Overlays))

	for _, d := range cfg.Overlays {
		if !d.Enabled {
			continue
		}
		key := d.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if !indicators.Available(key, series) {
			res.Unavailable = append(res.Unavailable, key)
			continue
		}

		points := overlayPoints(series, indicators[key.String()])
		style := overlayStyle(d)

		if cur, ok := r.live[key]; ok {
			changed, err := r.update(cur, style, points)
			if err != nil {
				r.logger.Warn("update overlay", logger.String("overlay", key.String()), logger.Error(err))
				r.drop(key)
				res.Failed = append(res.Failed, key)
				continue
			}
			keep[key] = struct{}{}
			if changed {
				res.Updated = append(res.Updated, key)
				r.record("update")
			}
			continue
		}

		if err := r.create(key, style, points); err != nil {
			r.logger.Warn("create overlay", logger.String("overlay", key.String()), logger.Error(err))
			res.Failed = append(res.Failed, key)
			continue
		}
		keep[key] = struct{}{}
		res.Created = append(res.Created, key)
		r.record("create")
	}

	for _, key := range r.Live() {
		if _, ok := keep[key]; ok {
			continue
		}
		r.drop(key)
		res.Removed = append(res.Removed, key)
		r.record("remove")
	}
	return res
}

func (r *Reconciler) create(key models.OverlayKey, style SeriesStyle, points []SeriesPoint) error {
	h, err := r.surface.AddSeries(SeriesLine, style)
	if err != nil {
		return err
	}
	if err := h.SetData(points); err != nil {
		_ = r.surface.RemoveSeries(h)
		return err
	}
	r.live[key] = &renderedOverlay{handle: h, style: style, points: points}
	return nil
}

func (r *Reconciler) update(cur *renderedOverlay, style SeriesStyle, points []SeriesPoint) (bool, error) {
	changed := false
	if cur.style != style {
		if err := cur.handle.ApplyStyle(style); err != nil {
			return false, err
		}
		cur.style = style
		changed = true
	}
	if !samePoints(cur.points, points) {
		if err := cur.handle.SetData(points); err != nil {
			return false, err
		}
		cur.points = points
		changed = true
	}
	return changed, nil
}

func (r *Reconciler) drop(key models.OverlayKey) {
	cur, ok := r.live[key]
	if !ok {
		return
	}
	delete(r.live, key)
	if err := r.surface.RemoveSeries(cur.handle); err != nil {
		r.logger.Warn("remove overlay", logger.String("overlay", key.String()), logger.Error(err))
	}
}

func (r *Reconciler) record(op string) {
	if r.metrics != nil {
		r.metrics.RecordOverlayOp(op)
	}
}

// Clear destroys every live overlay.
func (r *Reconciler) Clear() []models.OverlayKey {
	keys := r.Live()
	for _, key := range keys {
		r.drop(key)
		r.record("remove")
	}
	return keys
}

// Live returns the live overlay identities in a stable order.
func (r *Reconciler) Live() []models.OverlayKey {
	keys := make([]models.OverlayKey, 0, len(r.live))
	for k := range r.live {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Handle returns the live handle for key.
func (r *Reconciler) Handle(key models.OverlayKey) (SeriesHandle, bool) {
	cur, ok := r.live[key]
	if !ok {
		return nil, false
	}
	return cur.handle, true
}

func overlayStyle(d models.OverlayDescriptor) SeriesStyle {
	return SeriesStyle{
		Title:     d.Label(),
		Color:     d.Color,
		LineWidth: d.StrokeWidth,
	}
}

// overlayPoints skips indices with no value; a missing value is never drawn as zero.
func overlayPoints(series NormalizedSeries, values []*float64) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(values))
	for i, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		points = append(points, SeriesPoint{Time: series.Bars[i].Time, Value: *v})
	}
	return points
}

func samePoints(a, b []SeriesPoint) bool {
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
