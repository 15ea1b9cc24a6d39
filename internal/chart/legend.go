package chart

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"ChartDeck/internal/domain/models"
)

const (
	LegendUpColor   = "#26A69A"
	LegendDownColor = "#EF5350"
)

// GapPolicy decides what the legend shows when the pointer is over the plot
// but no bar exists at its time, e.g. a weekend on a daily chart.
type GapPolicy int

const (
	// RetainOnGap keeps the last valid legend.
	RetainOnGap GapPolicy = iota
	// HideOnGap hides the legend.
	HideOnGap
)

// ParseGapPolicy maps "retain" and "hide" to a policy.
func ParseGapPolicy(s string) (GapPolicy, error) {
	switch s {
	case "", "retain":
		return RetainOnGap, nil
	case "hide":
		return HideOnGap, nil
	default:
		return RetainOnGap, fmt.Errorf("unknown gap policy %q", s)
	}
}

// Legend is the OHLC readout for the bar under the pointer.
type Legend struct {
	Visible bool            `json:"visible"`
	Time    *models.TimeKey `json:"time,omitempty"`
	Open    float64         `json:"open,omitempty"`
	High    float64         `json:"high,omitempty"`
	Low     float64         `json:"low,omitempty"`
	Close   float64         `json:"close,omitempty"`
	Text    string          `json:"text,omitempty"`
	Up      bool            `json:"up"`
	Color   string          `json:"color,omitempty"`
}

// LegendProjector turns pointer events into a legend for the current series.
type LegendProjector struct {
	policy  GapPolicy
	series  NormalizedSeries
	current Legend
}

func NewLegendProjector(policy GapPolicy) *LegendProjector {
	return &LegendProjector{policy: policy}
}

// SetSeries swaps the series bars are resolved against and clears the legend.
func (p *LegendProjector) SetSeries(s NormalizedSeries) {
	p.series = s
	p.current = Legend{}
}

// Current returns the last projected legend.
func (p *LegendProjector) Current() Legend { return p.current }

// Project resolves the bar at the event time and updates the legend.
func (p *LegendProjector) Project(e PointerEvent) Legend {
	if !e.InBounds || e.Time == nil {
		p.current = Legend{}
		return p.current
	}
	i, ok := p.series.Find(*e.Time)
	if !ok {
		if p.policy == HideOnGap {
			p.current = Legend{}
		}
		return p.current
	}
	p.current = project(p.series.Bars[i])
	return p.current
}

func project(b models.Bar) Legend {
	t := b.Time
	l := Legend{
		Visible: true,
		Time:    &t,
		Open:    b.Open,
		High:    b.High,
		Low:     b.Low,
		Close:   b.Close,
		Up:      b.Up(),
		Color:   LegendDownColor,
	}
	if l.Up {
		l.Color = LegendUpColor
	}
	l.Text = fmt.Sprintf("O %s H %s L %s C %s",
		formatPrice(b.Open), formatPrice(b.High), formatPrice(b.Low), formatPrice(b.Close))
	if b.Open != 0 {
		change := decimal.NewFromFloat(b.Close).Sub(decimal.NewFromFloat(b.Open)).
			Div(decimal.NewFromFloat(b.Open)).
			Mul(decimal.NewFromInt(100))
		sign := ""
		if change.IsPositive() {
			sign = "+"
		}
		l.Text += fmt.Sprintf(" %s%s%%", sign, change.StringFixed(2))
	}
	return l
}

// formatPrice uses 2 decimals at or above 1 and 4 below.
func formatPrice(v float64) string {
	places := int32(2)
	if math.Abs(v) < 1 {
		places = 4
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
