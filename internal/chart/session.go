package chart

import (
	"fmt"
	"io"

	"ChartDeck/internal/domain/repository"
	"ChartDeck/pkg/logger"
)

const (
	volumeScaleID   = "volume"
	volumeUpColor   = "rgba(38,166,154,0.5)"
	volumeDownColor = "rgba(239,83,80,0.5)"
)

type sessionOptions struct {
	logger    *logger.Logger
	metrics   repository.Metrics
	gapPolicy GapPolicy
}

// SessionOption configures Open.
type SessionOption func(*sessionOptions)

func WithSessionLogger(l *logger.Logger) SessionOption {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithSessionMetrics(m repository.Metrics) SessionOption {
	return func(o *sessionOptions) { o.metrics = m }
}

// WithGapPolicy sets what the legend shows when the pointer sits on a gap.
func WithGapPolicy(p GapPolicy) SessionOption {
	return func(o *sessionOptions) { o.gapPolicy = p }
}

// Session binds one mounted chart view to its surface. It owns the surface,
// the price and volume series, every overlay handle and every subscription.
// A Session is not safe for concurrent use; View serializes access.
type Session struct {
	container Container
	surface   Surface
	price     SeriesHandle
	volume    SeriesHandle
	overlays  *Reconciler
	legend    *LegendProjector
	logger    *logger.Logger
	metrics   repository.Metrics

	unobserve   func()
	unsubscribe func()

	series    NormalizedSeries
	maximized bool
	closed    bool
}

// Open allocates exactly one surface with one price and one volume series,
// and binds the container resize and surface pointer subscriptions.
// Failure affects only this session and is returned as *SurfaceAllocationError.
func Open(factory SurfaceFactory, container Container, opts ...SessionOption) (*Session, error) {
	o := sessionOptions{logger: logger.Nop(), gapPolicy: RetainOnGap}
	for _, opt := range opts {
		opt(&o)
	}

	if container == nil {
		return nil, &SurfaceAllocationError{Err: errContainerMissing}
	}
	if factory == nil {
		return nil, &SurfaceAllocationError{ContainerID: container.ID(), Err: fmt.Errorf("no surface factory")}
	}

	surface, err := factory.NewSurface(container)
	if err != nil {
		return nil, &SurfaceAllocationError{ContainerID: container.ID(), Err: err}
	}
	if surface == nil {
		return nil, &SurfaceAllocationError{ContainerID: container.ID(), Err: fmt.Errorf("factory returned no surface")}
	}

	price, err := surface.AddSeries(SeriesCandlestick, SeriesStyle{
		Title:     "price",
		UpColor:   LegendUpColor,
		DownColor: LegendDownColor,
	})
	if err != nil {
		surface.Destroy()
		return nil, &SurfaceAllocationError{ContainerID: container.ID(), Err: fmt.Errorf("price series: %w", err)}
	}
	volume, err := surface.AddSeries(SeriesHistogram, SeriesStyle{
		Title:        "volume",
		Color:        volumeUpColor,
		PriceScaleID: volumeScaleID,
	})
	if err != nil {
		_ = surface.RemoveSeries(price)
		surface.Destroy()
		return nil, &SurfaceAllocationError{ContainerID: container.ID(), Err: fmt.Errorf("volume series: %w", err)}
	}

	s := &Session{
		container: container,
		surface:   surface,
		price:     price,
		volume:    volume,
		legend:    NewLegendProjector(o.gapPolicy),
		logger:    o.logger.With(logger.String("container", container.ID())),
		metrics:   o.metrics,
	}
	s.overlays = NewReconciler(surface, s.logger, o.metrics)

	s.unobserve = container.ObserveResize(func(w, h int) {
		s.surface.Resize(w, h)
	})
	s.unsubscribe = surface.SubscribePointer(func(e PointerEvent) {
		s.legend.Project(e)
	})

	if s.metrics != nil {
		s.metrics.RecordSessions(1)
	}
	s.logger.Info("chart session opened")
	return s, nil
}

// ContainerID returns the id of the hosting container.
func (s *Session) ContainerID() string { return s.container.ID() }

// Surface exposes the underlying surface.
func (s *Session) Surface() Surface { return s.surface }

// Overlays returns the reconciler owning this session's overlay handles.
func (s *Session) Overlays() *Reconciler { return s.overlays }

// Legend returns the projector bound to this session's pointer events.
func (s *Session) Legend() *LegendProjector { return s.legend }

// Series returns the series currently pushed to the surface.
func (s *Session) Series() NormalizedSeries { return s.series }

func (s *Session) Closed() bool { return s.closed }

// SetData replaces the price and volume content wholesale.
func (s *Session) SetData(series NormalizedSeries) error {
	if s.closed {
		return ErrSessionClosed
	}

	prices, volumes := seriesPoints(series)
	if err := s.price.SetData(prices); err != nil {
		return fmt.Errorf("set price data: %w", err)
	}
	if err := s.volume.SetData(volumes); err != nil {
		// keep price and volume on the same bars
		prev, _ := seriesPoints(s.series)
		if rerr := s.price.SetData(prev); rerr != nil {
			s.logger.Warn("restore price data", logger.Error(rerr))
		}
		return fmt.Errorf("set volume data: %w", err)
	}
	s.series = series
	s.legend.SetSeries(series)
	return nil
}

func seriesPoints(series NormalizedSeries) (prices, volumes []SeriesPoint) {
	prices = make([]SeriesPoint, len(series.Bars))
	volumes = make([]SeriesPoint, len(series.Bars))
	for i, b := range series.Bars {
		prices[i] = SeriesPoint{Time: b.Time, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
		color := volumeUpColor
		if !b.Up() {
			color = volumeDownColor
		}
		volumes[i] = SeriesPoint{Time: b.Time, Value: b.Volume, Color: color}
	}
	return prices, volumes
}

// Resize drives the container size. Containers that cannot be resized from
// outside get the new size forwarded straight to the surface.
func (s *Session) Resize(width, height int) error {
	if s.closed {
		return ErrSessionClosed
	}
	if rc, ok := s.container.(ResizableContainer); ok {
		rc.Resize(width, height)
		return nil
	}
	s.surface.Resize(width, height)
	return nil
}

// InjectPointer feeds a pointer event through the surface subscription and
// returns the resulting legend.
func (s *Session) InjectPointer(e PointerEvent) (Legend, error) {
	if s.closed {
		return Legend{}, ErrSessionClosed
	}
	if src, ok := s.surface.(PointerSource); ok {
		src.EmitPointer(e)
	} else {
		s.legend.Project(e)
	}
	return s.legend.Current(), nil
}

// SetMaximized toggles the maximize/restore render mode.
func (s *Session) SetMaximized(v bool) { s.maximized = v }

func (s *Session) Maximized() bool { return s.maximized }

// Snapshot renders the retained surface state when the surface supports it.
func (s *Session) Snapshot(w io.Writer, title string) error {
	if s.closed {
		return ErrSessionClosed
	}
	snap, ok := s.surface.(Snapshotter)
	if !ok {
		return fmt.Errorf("surface of container %q cannot snapshot", s.container.ID())
	}
	return snap.Snapshot(w, title)
}

// Close releases overlays, series, subscriptions and the surface. Calling it
// again is a no-op.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	s.overlays.Clear()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.unobserve != nil {
		s.unobserve()
	}
	if err := s.surface.RemoveSeries(s.volume); err != nil {
		s.logger.Warn("remove volume series", logger.Error(err))
	}
	if err := s.surface.RemoveSeries(s.price); err != nil {
		s.logger.Warn("remove price series", logger.Error(err))
	}
	s.surface.Destroy()
	s.series = NormalizedSeries{}
	s.legend.SetSeries(s.series)

	if s.metrics != nil {
		s.metrics.RecordSessions(-1)
	}
	s.logger.Info("chart session closed")
}
