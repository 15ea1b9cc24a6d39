package surface

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/models"
)

func newRetained(t *testing.T, opts ...Option) *Retained {
	t.Helper()
	r, err := New(NewContainer("main", 800, 400), opts...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return r
}

func TestNewRequiresContainer(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoContainer) {
		t.Fatalf("err = %v, want ErrNoContainer", err)
	}
}

func TestSeriesLifecycle(t *testing.T) {
	r := newRetained(t)
	var ops []string
	r.Watch(func(c Command) { ops = append(ops, c.Op) })

	h, err := r.AddSeries(chart.SeriesLine, chart.SeriesStyle{Title: "SMA 20", Color: "#F59E0B"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.SetData([]chart.SeriesPoint{{Time: models.DayKey("2024-01-02"), Value: 1}}); err != nil {
		t.Fatalf("set data: %v", err)
	}
	if err := h.ApplyStyle(chart.SeriesStyle{Title: "SMA 20", Color: "#000000"}); err != nil {
		t.Fatalf("style: %v", err)
	}
	if got := r.Series(); len(got) != 1 || got[0].Style.Color != "#000000" || len(got[0].Points) != 1 {
		t.Fatalf("series = %+v", got)
	}
	if err := r.RemoveSeries(h); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := h.SetData(nil); !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("set data after remove: %v", err)
	}
	if err := r.RemoveSeries(h); !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("second remove: %v", err)
	}

	want := []string{OpAddSeries, OpSetData, OpApplyStyle, OpRemoveSeries}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v", ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}
	if c := r.Ops(); c.Adds != 1 || c.Removes != 1 || c.SetData != 1 || c.Styles != 1 {
		t.Fatalf("counts = %+v", c)
	}
}

func TestMaxSeries(t *testing.T) {
	r := newRetained(t, WithMaxSeries(2))
	for i := 0; i < 2; i++ {
		if _, err := r.AddSeries(chart.SeriesLine, chart.SeriesStyle{}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if _, err := r.AddSeries(chart.SeriesLine, chart.SeriesStyle{}); !errors.Is(err, ErrSeriesLimit) {
		t.Fatalf("err = %v, want ErrSeriesLimit", err)
	}
}

func TestReplayRebuildsState(t *testing.T) {
	r := newRetained(t)
	price, _ := r.AddSeries(chart.SeriesCandlestick, chart.SeriesStyle{Title: "AAPL"})
	vol, _ := r.AddSeries(chart.SeriesHistogram, chart.SeriesStyle{Title: "Volume"})
	_ = price.SetData([]chart.SeriesPoint{{Time: models.DayKey("2024-01-02"), Open: 1, High: 2, Low: 1, Close: 2}})
	_ = vol.SetData([]chart.SeriesPoint{{Time: models.DayKey("2024-01-02"), Value: 10}})
	r.Resize(640, 320)

	cmds := r.Replay()
	if len(cmds) != 5 {
		t.Fatalf("replay = %+v", cmds)
	}
	if cmds[0].Op != OpResize || cmds[0].Width != 640 {
		t.Fatalf("first = %+v", cmds[0])
	}
	if cmds[1].SeriesID != price.ID() || cmds[3].SeriesID != vol.ID() {
		t.Fatalf("series order = %s, %s", cmds[1].SeriesID, cmds[3].SeriesID)
	}
	if cmds[2].Op != OpSetData || len(cmds[2].Points) != 1 {
		t.Fatalf("price data = %+v", cmds[2])
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	r := newRetained(t)
	h, _ := r.AddSeries(chart.SeriesLine, chart.SeriesStyle{})
	r.SubscribePointer(func(chart.PointerEvent) {})
	var last string
	r.Watch(func(c Command) { last = c.Op })

	r.Destroy()
	r.Destroy()

	if last != OpDestroy {
		t.Fatalf("last op = %q", last)
	}
	if !r.Destroyed() || r.PointerSubscribers() != 0 || len(r.Series()) != 0 {
		t.Fatalf("surface not released")
	}
	if _, err := r.AddSeries(chart.SeriesLine, chart.SeriesStyle{}); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("add after destroy: %v", err)
	}
	if err := h.SetData(nil); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("set data after destroy: %v", err)
	}
}

func TestPointerSubscribers(t *testing.T) {
	r := newRetained(t)
	var got []float64
	unsub := r.SubscribePointer(func(e chart.PointerEvent) { got = append(got, e.X) })

	r.EmitPointer(chart.PointerEvent{X: 1})
	unsub()
	unsub()
	r.EmitPointer(chart.PointerEvent{X: 2})

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got = %v", got)
	}
}

func TestContainerResizeNotifiesOnChange(t *testing.T) {
	c := NewContainer("main", 100, 100)
	calls := 0
	stop := c.ObserveResize(func(w, h int) { calls++ })

	c.Resize(100, 100)
	c.Resize(200, 100)
	stop()
	c.Resize(300, 100)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if w, _ := c.Size(); w != 300 {
		t.Fatalf("width = %d", w)
	}
	if c.Observers() != 0 {
		t.Fatalf("observers = %d", c.Observers())
	}
}

func TestFactoryIndexesSurfaces(t *testing.T) {
	f := NewFactory(WithMaxSeries(4))
	s, err := f.NewSurface(NewContainer("main", 10, 10))
	if err != nil {
		t.Fatalf("new surface: %v", err)
	}
	if got, ok := f.Lookup("main"); !ok || got != s {
		t.Fatalf("lookup failed")
	}

	s.Destroy()
	if _, ok := f.Lookup("main"); ok {
		t.Fatalf("destroyed surface still visible")
	}

	if _, err := f.NewSurface(NewContainer("side", 10, 10)); err != nil {
		t.Fatalf("new surface: %v", err)
	}
	f.Forget("side")
	if _, ok := f.Lookup("side"); ok {
		t.Fatalf("forgotten surface still visible")
	}
}

// mirror rebuilds series state from a command stream.
type mirror struct {
	mu     sync.Mutex
	series map[string][]chart.SeriesPoint
	err    error
}

func newMirror() *mirror { return &mirror{series: map[string][]chart.SeriesPoint{}} }

func (m *mirror) apply(cmd Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch cmd.Op {
	case OpAddSeries:
		m.series[cmd.SeriesID] = nil
	case OpRemoveSeries:
		delete(m.series, cmd.SeriesID)
	case OpSetData:
		if _, ok := m.series[cmd.SeriesID]; !ok && m.err == nil {
			m.err = fmt.Errorf("set_data for unknown series %s", cmd.SeriesID)
		}
		m.series[cmd.SeriesID] = cmd.Points
	}
}

func (m *mirror) matches(t *testing.T, r *Retained) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		t.Fatal(m.err)
	}
	live := r.Series()
	if len(live) != len(m.series) {
		t.Fatalf("mirror has %d series, surface has %d", len(m.series), len(live))
	}
	for _, info := range live {
		pts, ok := m.series[info.ID]
		if !ok {
			t.Fatalf("mirror missing series %s", info.ID)
		}
		if len(pts) != len(info.Points) {
			t.Fatalf("series %s: mirror %d points, surface %d", info.ID, len(pts), len(info.Points))
		}
		for i := range pts {
			if pts[i].Time != info.Points[i].Time || pts[i].Value != info.Points[i].Value {
				t.Fatalf("series %s point %d: mirror %+v, surface %+v", info.ID, i, pts[i], info.Points[i])
			}
		}
	}
}

// churn adds, fills and removes series so a missed command shows up.
func churn(r *Retained, n int) {
	for i := 0; i < n; i++ {
		h, err := r.AddSeries(chart.SeriesLine, chart.SeriesStyle{})
		if err != nil {
			return
		}
		_ = h.SetData([]chart.SeriesPoint{{Time: models.UnixKey(int64(i)), Value: float64(i)}})
		if i%2 == 0 {
			_ = r.RemoveSeries(h)
		}
	}
}

func TestReplayAndWatchMissesNothing(t *testing.T) {
	for round := 0; round < 20; round++ {
		r := newRetained(t)
		m := newMirror()

		done := make(chan struct{})
		go func() {
			defer close(done)
			churn(r, 50)
		}()
		unwatch := r.ReplayAndWatch(m.apply)
		<-done

		m.matches(t, r)
		unwatch()
	}
}

func TestReplayAndWatchOnDestroyedSurface(t *testing.T) {
	r := newRetained(t)
	r.Destroy()
	var ops []string
	r.ReplayAndWatch(func(cmd Command) { ops = append(ops, cmd.Op) })
	if len(ops) != 2 || ops[1] != OpDestroy {
		t.Fatalf("ops = %v", ops)
	}
}
