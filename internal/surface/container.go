package surface

import (
	"sort"
	"sync"

	"ChartDeck/internal/chart"
)

// VirtualContainer stands in for a layout element whose size is reported
// by the client.
type VirtualContainer struct {
	mu        sync.Mutex
	id        string
	width     int
	height    int
	observers map[int]func(int, int)
	next      int
}

func NewContainer(id string, width, height int) *VirtualContainer {
	return &VirtualContainer{id: id, width: width, height: height, observers: make(map[int]func(int, int))}
}

func (c *VirtualContainer) ID() string { return c.id }

func (c *VirtualContainer) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *VirtualContainer) ObserveResize(fn func(int, int)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Resize updates the size and notifies observers. Unchanged sizes are ignored.
func (c *VirtualContainer) Resize(width, height int) {
	c.mu.Lock()
	if width == c.width && height == c.height {
		c.mu.Unlock()
		return
	}
	c.width, c.height = width, height
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(int, int), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.observers[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(width, height)
	}
}

// Observers returns the number of registered resize observers.
func (c *VirtualContainer) Observers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

var _ chart.ResizableContainer = (*VirtualContainer)(nil)
