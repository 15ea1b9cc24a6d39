package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/models"
	domrepo "ChartDeck/internal/domain/repository"
	"ChartDeck/internal/surface"
	"ChartDeck/pkg/indicator"
	"ChartDeck/pkg/logger"
)

var (
	ErrSessionNotFound = errors.New("chart session not found")
	ErrContainerInUse  = errors.New("container already hosts a chart")
)

// SessionState is the view state plus registry bookkeeping.
type SessionState struct {
	ID          string    `json:"id"`
	ContainerID string    `json:"container_id"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	LastActive  time.Time `json:"last_active"`
	chart.ViewState
}

type sessionEntry struct {
	id         string
	view       *chart.View
	container  *surface.VirtualContainer
	lastActive time.Time
}

type SessionsOption func(*ChartSessions)

func WithSessionsLogger(l *logger.Logger) SessionsOption {
	return func(s *ChartSessions) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSessionsMetrics(m domrepo.Metrics) SessionsOption {
	return func(s *ChartSessions) { s.metrics = m }
}

// WithGapPolicy sets the legend behaviour for pointer positions between bars.
func WithGapPolicy(p chart.GapPolicy) SessionsOption {
	return func(s *ChartSessions) { s.gapPolicy = p }
}

// WithIndicatorBackfill computes missing moving averages locally.
func WithIndicatorBackfill(enabled bool) SessionsOption {
	return func(s *ChartSessions) { s.backfill = enabled }
}

// WithTimeframeListener is attached to every view opened by the registry.
func WithTimeframeListener(fn chart.TimeframeListener) SessionsOption {
	return func(s *ChartSessions) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

func WithClock(now func() time.Time) SessionsOption {
	return func(s *ChartSessions) { s.now = now }
}

// ChartSessions owns every mounted chart view, keyed by session id.
type ChartSessions struct {
	mu          sync.RWMutex
	entries     map[string]*sessionEntry
	byContainer map[string]string

	factory   *surface.Factory
	prefs     domrepo.PreferenceRepository
	logger    *logger.Logger
	metrics   domrepo.Metrics
	gapPolicy chart.GapPolicy
	backfill  bool
	listeners []chart.TimeframeListener
	now       func() time.Time
}

func NewChartSessions(factory *surface.Factory, prefs domrepo.PreferenceRepository, opts ...SessionsOption) *ChartSessions {
	s := &ChartSessions{
		entries:     make(map[string]*sessionEntry),
		byContainer: make(map[string]string),
		factory:     factory,
		prefs:       prefs,
		logger:      logger.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open mounts a chart into a new container and returns the session id.
func (s *ChartSessions) Open(ctx context.Context, req models.OpenChartRequest) (string, error) {
	iv := domrepo.Interval(req.Interval)
	if !domrepo.IsValidInterval(iv) {
		return "", fmt.Errorf("%w: %q", chart.ErrInvalidInterval, req.Interval)
	}

	s.mu.Lock()
	if _, busy := s.byContainer[req.ContainerID]; busy {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrContainerInUse, req.ContainerID)
	}
	// reserve the container while the surface is allocated
	s.byContainer[req.ContainerID] = ""
	s.mu.Unlock()

	id, err := s.open(ctx, req, iv)
	s.mu.Lock()
	if err != nil {
		delete(s.byContainer, req.ContainerID)
	} else {
		s.byContainer[req.ContainerID] = id
	}
	s.mu.Unlock()
	return id, err
}

func (s *ChartSessions) open(ctx context.Context, req models.OpenChartRequest, iv domrepo.Interval) (string, error) {
	container := surface.NewContainer(req.ContainerID, req.Width, req.Height)
	session, err := chart.Open(s.factory, container,
		chart.WithSessionLogger(s.logger),
		chart.WithSessionMetrics(s.metrics),
		chart.WithGapPolicy(s.gapPolicy),
	)
	if err != nil {
		s.factory.Forget(req.ContainerID)
		return "", err
	}

	id := uuid.NewString()
	viewOpts := []chart.ViewOption{
		chart.WithViewLogger(s.logger.With(logger.String("session", id))),
		chart.WithViewMetrics(s.metrics),
	}
	if s.backfill {
		viewOpts = append(viewOpts, chart.WithBackfill(computeIndicator))
	}
	for _, fn := range s.listeners {
		viewOpts = append(viewOpts, chart.WithTimeframeListener(fn))
	}
	view, err := chart.NewView(ctx, session, s.prefs, req.Symbol, iv, viewOpts...)
	if err != nil {
		session.Close()
		s.factory.Forget(req.ContainerID)
		return "", err
	}

	s.mu.Lock()
	s.entries[id] = &sessionEntry{id: id, view: view, container: container, lastActive: s.now()}
	s.mu.Unlock()

	s.logger.Info("chart mounted",
		logger.String("session", id),
		logger.String("container", req.ContainerID),
		logger.String("symbol", req.Symbol),
		logger.String("interval", string(iv)),
	)
	return id, nil
}

func computeIndicator(key models.OverlayKey, closes []float64) ([]*float64, error) {
	return indicator.Compute(string(key.Kind), key.Period, closes)
}

// Close unmounts a session and releases its surface.
func (s *ChartSessions) Close(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
		// unindex before the container can be reserved again
		s.factory.Forget(e.container.ID())
		delete(s.byContainer, e.container.ID())
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.view.Close()
	s.logger.Info("chart unmounted", logger.String("session", id))
	return nil
}

// CloseAll unmounts every session.
func (s *ChartSessions) CloseAll() {
	for _, id := range s.IDs() {
		_ = s.Close(id)
	}
}

// IDs returns the open session ids in sorted order.
func (s *ChartSessions) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *ChartSessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// View returns the view of a session and marks it active.
func (s *ChartSessions) View(id string) (*chart.View, error) {
	e, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	return e.view, nil
}

// Surface returns the retained surface behind a session.
func (s *ChartSessions) Surface(id string) (*surface.Retained, error) {
	e, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	r, ok := s.factory.Lookup(e.container.ID())
	if !ok {
		return nil, fmt.Errorf("%w: %s", chart.ErrSessionClosed, id)
	}
	return r, nil
}

func (s *ChartSessions) touch(id string) (*sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.lastActive = s.now()
	return e, nil
}

// ApplyPayload applies a payload to one session.
func (s *ChartSessions) ApplyPayload(ctx context.Context, id string, p *models.AnalysisPayload) (chart.ApplyResult, error) {
	view, err := s.View(id)
	if err != nil {
		return chart.ApplyResult{}, err
	}
	res, err := view.ApplyPayload(ctx, p)
	s.recordPayload(err)
	return res, err
}

// Broadcast applies a payload to every session whose selection matches it
// and returns how many sessions accepted it.
func (s *ChartSessions) Broadcast(ctx context.Context, p *models.AnalysisPayload) (int, error) {
	s.mu.RLock()
	targets := make([]*sessionEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.view.Matches(p.Symbol, p.Interval) {
			targets = append(targets, e)
		}
	}
	s.mu.RUnlock()

	if len(targets) == 0 {
		s.record("unmatched")
		return 0, nil
	}

	applied := 0
	var errs []error
	for _, e := range targets {
		_, err := e.view.ApplyPayload(ctx, p)
		s.recordPayload(err)
		switch {
		case err == nil:
			applied++
		case errors.Is(err, chart.ErrSuperseded), errors.Is(err, chart.ErrSessionClosed):
			// the view moved on or was closed while the payload was in flight
			s.logger.Debug("payload skipped", logger.String("session", e.id), logger.Error(err))
		default:
			errs = append(errs, fmt.Errorf("session %s: %w", e.id, err))
		}
	}
	return applied, errors.Join(errs...)
}

func (s *ChartSessions) recordPayload(err error) {
	switch {
	case err == nil:
		s.record("applied")
	case errors.Is(err, chart.ErrSuperseded):
		s.record("superseded")
	default:
		s.record("failed")
	}
}

func (s *ChartSessions) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordPayload(result)
	}
}

func (s *ChartSessions) ToggleOverlay(ctx context.Context, id string, index int) error {
	view, err := s.View(id)
	if err != nil {
		return err
	}
	return view.OnToggleOverlay(ctx, index)
}

func (s *ChartSessions) UpdateOverlay(ctx context.Context, id string, index int, d models.OverlayDescriptor) error {
	view, err := s.View(id)
	if err != nil {
		return err
	}
	return view.UpdateOverlay(ctx, index, d)
}

func (s *ChartSessions) AddOverlay(ctx context.Context, id string, d models.OverlayDescriptor) error {
	view, err := s.View(id)
	if err != nil {
		return err
	}
	return view.AddOverlay(ctx, d)
}

func (s *ChartSessions) RemoveOverlay(ctx context.Context, id string, index int) error {
	view, err := s.View(id)
	if err != nil {
		return err
	}
	return view.RemoveOverlay(ctx, index)
}

func (s *ChartSessions) ChangeTimeframe(ctx context.Context, id, interval string) error {
	view, err := s.View(id)
	if err != nil {
		return err
	}
	return view.OnTimeframeChange(ctx, domrepo.Interval(interval))
}

func (s *ChartSessions) SetMaximized(id string, on bool) error {
	view, err := s.View(id)
	if err != nil {
		return err
	}
	view.SetMaximized(on)
	return nil
}

func (s *ChartSessions) Resize(id string, width, height int) error {
	view, err := s.View(id)
	if err != nil {
		return err
	}
	return view.Resize(width, height)
}

func (s *ChartSessions) Pointer(id string, e chart.PointerEvent) (chart.Legend, error) {
	view, err := s.View(id)
	if err != nil {
		return chart.Legend{}, err
	}
	return view.Pointer(e)
}

func (s *ChartSessions) State(id string) (SessionState, error) {
	e, err := s.touch(id)
	if err != nil {
		return SessionState{}, err
	}
	w, h := e.container.Size()
	s.mu.RLock()
	last := e.lastActive
	s.mu.RUnlock()
	return SessionState{
		ID:          id,
		ContainerID: e.container.ID(),
		Width:       w,
		Height:      h,
		LastActive:  last,
		ViewState:   e.view.State(),
	}, nil
}

// Render writes an HTML snapshot of the session surface.
func (s *ChartSessions) Render(id string, w io.Writer) error {
	view, err := s.View(id)
	if err != nil {
		return err
	}
	return view.Snapshot(w)
}

// SweepIdle closes sessions inactive for longer than ttl.
func (s *ChartSessions) SweepIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)
	s.mu.RLock()
	var idle []string
	for id, e := range s.entries {
		if e.lastActive.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if err := s.Close(id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		s.logger.Info("idle chart sessions closed", logger.Int("count", closed), logger.Duration("ttl", ttl))
	}
	return closed
}
