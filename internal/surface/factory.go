package surface

import (
	"sync"

	"ChartDeck/internal/chart"
)

// Factory allocates retained surfaces and remembers them by container id so
// the browser bridge and renderer can find them.
type Factory struct {
	mu       sync.Mutex
	opts     []Option
	surfaces map[string]*Retained
}

func NewFactory(opts ...Option) *Factory {
	return &Factory{opts: opts, surfaces: make(map[string]*Retained)}
}

func (f *Factory) NewSurface(c chart.Container) (chart.Surface, error) {
	if c == nil {
		return nil, ErrNoContainer
	}
	r, err := New(c, f.opts...)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.surfaces[c.ID()] = r
	f.mu.Unlock()
	return r, nil
}

// Lookup returns the live surface allocated for a container.
func (f *Factory) Lookup(containerID string) (*Retained, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.surfaces[containerID]
	if !ok || r.Destroyed() {
		return nil, false
	}
	return r, true
}

// Forget drops a container's surface from the index.
func (f *Factory) Forget(containerID string) {
	f.mu.Lock()
	delete(f.surfaces, containerID)
	f.mu.Unlock()
}

var _ chart.SurfaceFactory = (*Factory)(nil)
