package surface

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"ChartDeck/internal/chart"
)

var (
	ErrDestroyed     = errors.New("surface: destroyed")
	ErrUnknownSeries = errors.New("surface: unknown series")
	ErrSeriesLimit   = errors.New("surface: series limit reached")
	ErrNoContainer   = errors.New("surface: no container")
)

// Command ops mirrored to watchers.
const (
	OpAddSeries    = "add_series"
	OpRemoveSeries = "remove_series"
	OpSetData      = "set_data"
	OpApplyStyle   = "apply_style"
	OpResize       = "resize"
	OpDestroy      = "destroy"
)

// Command is one mutation applied to a retained surface.
type Command struct {
	Op       string              `json:"op"`
	SeriesID string              `json:"series_id,omitempty"`
	Kind     chart.SeriesKind    `json:"kind,omitempty"`
	Style    *chart.SeriesStyle  `json:"style,omitempty"`
	Points   []chart.SeriesPoint `json:"points,omitempty"`
	Width    int                 `json:"width,omitempty"`
	Height   int                 `json:"height,omitempty"`
}

// OpCounts counts surface calls, mostly for tests.
type OpCounts struct {
	Adds    int
	Removes int
	SetData int
	Styles  int
	Resizes int
}

// Option configures a Retained surface.
type Option func(*Retained)

// WithMaxSeries caps the number of live series. Zero means unlimited.
func WithMaxSeries(n int) Option {
	return func(r *Retained) { r.maxSeries = n }
}

// WithWatcher registers a command watcher at creation time.
func WithWatcher(fn func(Command)) Option {
	return func(r *Retained) {
		if fn != nil {
			r.watchers[r.nextWatch] = fn
			r.nextWatch++
		}
	}
}

// Retained keeps every series and its data in memory. It does no drawing;
// renderers and browser bridges read its state or watch its commands.
type Retained struct {
	mu sync.Mutex

	containerID string
	width       int
	height      int
	maxSeries   int
	destroyed   bool
	ops         OpCounts

	series    map[string]*Series
	nextID    int
	pointer   map[int]func(chart.PointerEvent)
	nextSub   int
	watchers  map[int]func(Command)
	nextWatch int
}

// New creates a retained surface sized to the container.
func New(c chart.Container, opts ...Option) (*Retained, error) {
	if c == nil {
		return nil, ErrNoContainer
	}
	w, h := c.Size()
	r := &Retained{
		containerID: c.ID(),
		width:       w,
		height:      h,
		series:      make(map[string]*Series),
		pointer:     make(map[int]func(chart.PointerEvent)),
		watchers:    make(map[int]func(Command)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Series is a handle to one retained series.
type Series struct {
	surface *Retained
	id      string
	kind    chart.SeriesKind
	style   chart.SeriesStyle
	points  []chart.SeriesPoint
	removed bool
}

func (s *Series) ID() string             { return s.id }
func (s *Series) Kind() chart.SeriesKind { return s.kind }

func (s *Series) SetData(points []chart.SeriesPoint) error {
	r := s.surface
	r.mu.Lock()
	if err := s.usable(); err != nil {
		r.mu.Unlock()
		return err
	}
	s.points = append([]chart.SeriesPoint(nil), points...)
	r.ops.SetData++
	cmd := Command{Op: OpSetData, SeriesID: s.id, Points: s.points}
	watchers := r.watcherList()
	r.mu.Unlock()

	notify(watchers, cmd)
	return nil
}

func (s *Series) ApplyStyle(style chart.SeriesStyle) error {
	r := s.surface
	r.mu.Lock()
	if err := s.usable(); err != nil {
		r.mu.Unlock()
		return err
	}
	s.style = style
	r.ops.Styles++
	st := style
	cmd := Command{Op: OpApplyStyle, SeriesID: s.id, Style: &st}
	watchers := r.watcherList()
	r.mu.Unlock()

	notify(watchers, cmd)
	return nil
}

// usable must be called with the surface lock held.
func (s *Series) usable() error {
	if s.surface.destroyed {
		return ErrDestroyed
	}
	if s.removed {
		return fmt.Errorf("%w: %s", ErrUnknownSeries, s.id)
	}
	return nil
}

func (r *Retained) AddSeries(kind chart.SeriesKind, style chart.SeriesStyle) (chart.SeriesHandle, error) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return nil, ErrDestroyed
	}
	if r.maxSeries > 0 && len(r.series) >= r.maxSeries {
		r.mu.Unlock()
		return nil, ErrSeriesLimit
	}
	r.nextID++
	s := &Series{
		surface: r,
		id:      fmt.Sprintf("s%d", r.nextID),
		kind:    kind,
		style:   style,
	}
	r.series[s.id] = s
	r.ops.Adds++
	st := style
	cmd := Command{Op: OpAddSeries, SeriesID: s.id, Kind: kind, Style: &st}
	watchers := r.watcherList()
	r.mu.Unlock()

	notify(watchers, cmd)
	return s, nil
}

func (r *Retained) RemoveSeries(h chart.SeriesHandle) error {
	if h == nil {
		return ErrUnknownSeries
	}
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return ErrDestroyed
	}
	s, ok := r.series[h.ID()]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSeries, h.ID())
	}
	delete(r.series, s.id)
	s.removed = true
	r.ops.Removes++
	cmd := Command{Op: OpRemoveSeries, SeriesID: s.id}
	watchers := r.watcherList()
	r.mu.Unlock()

	notify(watchers, cmd)
	return nil
}

func (r *Retained) Resize(width, height int) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.width, r.height = width, height
	r.ops.Resizes++
	cmd := Command{Op: OpResize, Width: width, Height: height}
	watchers := r.watcherList()
	r.mu.Unlock()

	notify(watchers, cmd)
}

func (r *Retained) SubscribePointer(fn func(chart.PointerEvent)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.pointer[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.pointer, id)
			r.mu.Unlock()
		})
	}
}

// EmitPointer delivers e to every pointer subscriber.
func (r *Retained) EmitPointer(e chart.PointerEvent) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(r.pointer))
	for id := range r.pointer {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(chart.PointerEvent), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, r.pointer[id])
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

func (r *Retained) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	for id, s := range r.series {
		s.removed = true
		delete(r.series, id)
	}
	r.pointer = make(map[int]func(chart.PointerEvent))
	cmd := Command{Op: OpDestroy}
	watchers := r.watcherList()
	r.watchers = make(map[int]func(Command))
	r.mu.Unlock()

	notify(watchers, cmd)
}

// Watch registers fn for every subsequent command.
func (r *Retained) Watch(fn func(Command)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextWatch
	r.nextWatch++
	r.watchers[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
	}
}

// Replay returns the commands that rebuild the current state from scratch.
func (r *Retained) Replay() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replayLocked()
}

// ReplayAndWatch hands fn the replay of the current state and registers it
// for every later command under one lock hold, so no command falls between
// the two. fn runs with the surface locked during the replay and must not
// call back into the surface.
func (r *Retained) ReplayAndWatch(fn func(Command)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cmd := range r.replayLocked() {
		fn(cmd)
	}
	if r.destroyed {
		fn(Command{Op: OpDestroy})
		return func() {}
	}
	id := r.nextWatch
	r.nextWatch++
	r.watchers[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
	}
}

// replayLocked must be called with the lock held.
func (r *Retained) replayLocked() []Command {
	cmds := []Command{{Op: OpResize, Width: r.width, Height: r.height}}
	for _, s := range r.sortedSeries() {
		st := s.style
		cmds = append(cmds,
			Command{Op: OpAddSeries, SeriesID: s.id, Kind: s.kind, Style: &st},
			Command{Op: OpSetData, SeriesID: s.id, Points: append([]chart.SeriesPoint(nil), s.points...)},
		)
	}
	return cmds
}

// SeriesInfo is a copy of one retained series.
type SeriesInfo struct {
	ID     string
	Kind   chart.SeriesKind
	Style  chart.SeriesStyle
	Points []chart.SeriesPoint
}

// Series lists the live series in creation order.
func (r *Retained) Series() []SeriesInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SeriesInfo, 0, len(r.series))
	for _, s := range r.sortedSeries() {
		out = append(out, SeriesInfo{
			ID:     s.id,
			Kind:   s.kind,
			Style:  s.style,
			Points: append([]chart.SeriesPoint(nil), s.points...),
		})
	}
	return out
}

// CountKind returns how many live series have the given kind.
func (r *Retained) CountKind(kind chart.SeriesKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.series {
		if s.kind == kind {
			n++
		}
	}
	return n
}

// Len returns the number of live series.
func (r *Retained) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series)
}

func (r *Retained) Ops() OpCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops
}

func (r *Retained) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *Retained) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

func (r *Retained) PointerSubscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pointer)
}

func (r *Retained) ContainerID() string { return r.containerID }

// sortedSeries must be called with the lock held.
func (r *Retained) sortedSeries() []*Series {
	list := make([]*Series, 0, len(r.series))
	for _, s := range r.series {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return seriesNum(list[i].id) < seriesNum(list[j].id) })
	return list
}

// watcherList must be called with the lock held.
func (r *Retained) watcherList() []func(Command) {
	if len(r.watchers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Command), 0, len(ids))
	for _, id := range ids {
		out = append(out, r.watchers[id])
	}
	return out
}

func notify(watchers []func(Command), cmd Command) {
	for _, fn := range watchers {
		fn(cmd)
	}
}

func seriesNum(id string) int {
	n := 0
	for _, c := range id[1:] {
		n = n*10 + int(c-'0')
	}
	return n
}

var (
	_ chart.Surface       = (*Retained)(nil)
	_ chart.PointerSource = (*Retained)(nil)
	_ chart.Snapshotter   = (*Retained)(nil)
	_ chart.SeriesHandle  = (*Series)(nil)
)
