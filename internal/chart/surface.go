package chart

import (
	"io"

	"ChartDeck/internal/domain/models"
)

// SeriesKind selects how a series is drawn.
type SeriesKind string

const (
	SeriesCandlestick SeriesKind = "candlestick"
	SeriesHistogram   SeriesKind = "histogram"
	SeriesLine        SeriesKind = "line"
)

// SeriesStyle is the presentation of one series.
type SeriesStyle struct {
	Title        string `json:"title,omitempty"`
	Color        string `json:"color,omitempty"`
	LineWidth    int    `json:"lineWidth,omitempty"`
	UpColor      string `json:"upColor,omitempty"`
	DownColor    string `json:"downColor,omitempty"`
	PriceScaleID string `json:"priceScaleId,omitempty"`
}

// SeriesPoint is one datum pushed to a series. Candlesticks read OHLC,
// lines and histograms read Value.
type SeriesPoint struct {
	Time  models.TimeKey `json:"time"`
	Open  float64        `json:"open,omitempty"`
	High  float64        `json:"high,omitempty"`
	Low   float64        `json:"low,omitempty"`
	Close float64        `json:"close,omitempty"`
	Value float64        `json:"value"`
	Color string         `json:"color,omitempty"`
}

// PointerEvent is a pointer move over the surface. Time is nil when the
// pointer is not over the time axis.
type PointerEvent struct {
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Time     *models.TimeKey `json:"time,omitempty"`
	InBounds bool            `json:"in_bounds"`
}

// SeriesHandle is a live series on a surface.
type SeriesHandle interface {
	ID() string
	Kind() SeriesKind
	SetData(points []SeriesPoint) error
	ApplyStyle(style SeriesStyle) error
}

// Surface is a retained drawing surface. The chart core never draws or
// hit-tests; it only creates, updates and destroys series.
type Surface interface {
	AddSeries(kind SeriesKind, style SeriesStyle) (SeriesHandle, error)
	RemoveSeries(h SeriesHandle) error
	Resize(width, height int)
	SubscribePointer(fn func(PointerEvent)) (unsubscribe func())
	Destroy()
}

// Container is the host element a surface is mounted into.
type Container interface {
	ID() string
	Size() (width, height int)
	ObserveResize(fn func(width, height int)) (unobserve func())
}

// ResizableContainer is a container whose size is driven from outside,
// e.g. by a browser reporting layout changes.
type ResizableContainer interface {
	Container
	Resize(width, height int)
}

// SurfaceFactory allocates one surface per container.
type SurfaceFactory interface {
	NewSurface(c Container) (Surface, error)
}

// PointerSource is implemented by surfaces whose pointer events are injected.
type PointerSource interface {
	EmitPointer(e PointerEvent)
}

// Snapshotter is implemented by surfaces that can render their retained state.
type Snapshotter interface {
	Snapshot(w io.Writer, title string) error
}
