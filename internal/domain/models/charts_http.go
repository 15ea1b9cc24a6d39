package models

// Requests for chart HTTP endpoints. Defined in domain for consistency and reuse.

type OpenChartRequest struct {
	ContainerID string `json:"container_id" validate:"required"`
	Width       int    `json:"width" default:"960" validate:"gte=1,lte=10000"`
	Height      int    `json:"height" default:"540" validate:"gte=1,lte=10000"`
	Symbol      string `json:"symbol" validate:"required"`
	Interval    string `json:"interval" default:"1d" validate:"oneof=15m 1h 1d 1wk"`
}

type OverlayIndexRequest struct {
	ID    string `param:"id" validate:"required"`
	Index int    `param:"index" validate:"gte=0"`
}

type EditOverlayRequest struct {
	ID          string      `param:"id" validate:"required"`
	Index       int         `param:"index" validate:"gte=0"`
	Kind        OverlayKind `json:"kind" validate:"required,oneof=SMA EMA WMA"`
	Period      int         `json:"period" validate:"gte=1,lte=1000"`
	Color       string      `json:"color" default:"#3B82F6" validate:"required"`
	StrokeWidth int         `json:"strokeWidth" default:"2" validate:"gte=1,lte=10"`
	Enabled     bool        `json:"enabled"`
}

// Descriptor converts the request body into an overlay descriptor.
func (r EditOverlayRequest) Descriptor() OverlayDescriptor {
	return OverlayDescriptor{
		Kind:        r.Kind,
		Period:      r.Period,
		Color:       r.Color,
		StrokeWidth: r.StrokeWidth,
		Enabled:     r.Enabled,
	}
}

type TimeframeRequest struct {
	ID       string `param:"id" validate:"required"`
	Interval string `json:"interval" validate:"required,oneof=15m 1h 1d 1wk"`
}

type MaximizeRequest struct {
	ID        string `param:"id" validate:"required"`
	Maximized bool   `json:"maximized"`
}

type ResizeRequest struct {
	ID     string `param:"id" validate:"required"`
	Width  int    `json:"width" validate:"gte=0,lte=10000"`
	Height int    `json:"height" validate:"gte=0,lte=10000"`
}

type PointerRequest struct {
	ID       string   `param:"id" validate:"required"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Time     *TimeKey `json:"time,omitempty"`
	InBounds bool     `json:"in_bounds"`
}

type PreferenceRequest struct {
	Symbol   string              `param:"symbol" validate:"required"`
	Interval string              `param:"interval" validate:"oneof=15m 1h 1d 1wk"`
	Overlays []OverlayDescriptor `json:"overlays" validate:"dive"`
}
