package models

import (
	"fmt"
	"strconv"
	"strings"
)

// OverlayKind is the moving-average flavour of an overlay.
type OverlayKind string

const (
	KindSMA OverlayKind = "SMA"
	KindEMA OverlayKind = "EMA"
	KindWMA OverlayKind = "WMA"
)

// IsValid returns true if k is a supported overlay kind.
func (k OverlayKind) IsValid() bool {
	switch k {
	case KindSMA, KindEMA, KindWMA:
		return true
	default:
		return false
	}
}

// OverlayKey identifies an overlay within a config.
type OverlayKey struct {
	Kind   OverlayKind
	Period int
}

// String renders the indicator lookup key, e.g. "SMA_50".
func (k OverlayKey) String() string {
	return fmt.Sprintf("%s_%d", k.Kind, k.Period)
}

// ParseOverlayKey parses "{KIND}_{PERIOD}".
func ParseOverlayKey(s string) (OverlayKey, error) {
	kind, period, ok := strings.Cut(s, "_")
	if !ok {
		return OverlayKey{}, fmt.Errorf("overlay key %q: missing period", s)
	}
	p, err := strconv.Atoi(period)
	if err != nil || p <= 0 {
		return OverlayKey{}, fmt.Errorf("overlay key %q: invalid period", s)
	}
	k := OverlayKind(strings.ToUpper(kind))
	if !k.IsValid() {
		return OverlayKey{}, fmt.Errorf("overlay key %q: unknown kind", s)
	}
	return OverlayKey{Kind: k, Period: p}, nil
}

// OverlayDescriptor is the identity and style of one overlay.
type OverlayDescriptor struct {
	Kind        OverlayKind `json:"kind" validate:"required,oneof=SMA EMA WMA"`
	Period      int         `json:"period" validate:"gte=1,lte=1000"`
	Color       string      `json:"color" validate:"required"`
	StrokeWidth int         `json:"strokeWidth" validate:"gte=1,lte=10"`
	Enabled     bool        `json:"enabled"`
}

// Key returns the descriptor identity.
func (d OverlayDescriptor) Key() OverlayKey {
	return OverlayKey{Kind: d.Kind, Period: d.Period}
}

// Label is the display name used in legends and series titles.
func (d OverlayDescriptor) Label() string {
	return fmt.Sprintf("%s %d", d.Kind, d.Period)
}

// OverlayConfig is the ordered overlay list for one (symbol, interval).
type OverlayConfig struct {
	Symbol   string              `json:"symbol"`
	Interval string              `json:"interval"`
	Overlays []OverlayDescriptor `json:"overlays"`
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (c OverlayConfig) Clone() OverlayConfig {
	out := c
	out.Overlays = make([]OverlayDescriptor, len(c.Overlays))
	copy(out.Overlays, c.Overlays)
	return out
}

// EnabledKeys returns the identities of enabled overlays, first occurrence wins.
func (c OverlayConfig) EnabledKeys() []OverlayKey {
	seen := make(map[OverlayKey]struct{}, len(c.Overlays))
	keys := make([]OverlayKey, 0, len(c.Overlays))
	for _, d := range c.Overlays {
		if !d.Enabled {
			continue
		}
		if _, dup := seen[d.Key()]; dup {
			continue
		}
		seen[d.Key()] = struct{}{}
		keys = append(keys, d.Key())
	}
	return keys
}

// DuplicateKey returns the first identity that appears twice, if any.
func (c OverlayConfig) DuplicateKey() (OverlayKey, bool) {
	seen := make(map[OverlayKey]struct{}, len(c.Overlays))
	for _, d := range c.Overlays {
		if _, dup := seen[d.Key()]; dup {
			return d.Key(), true
		}
		seen[d.Key()] = struct{}{}
	}
	return OverlayKey{}, false
}
