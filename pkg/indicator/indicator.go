package indicator

import (
	"errors"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

var ErrUnknownKind = errors.New("indicator: unknown kind")

// Kinds understood by Compute.
const (
	SMA = "SMA"
	EMA = "EMA"
	WMA = "WMA"
)

// Compute returns the moving average of closes, index-aligned with the input.
// The first period-1 positions, where there is not enough history, are nil.
func Compute(kind string, period int, closes []float64) ([]*float64, error) {
	if kind != SMA && kind != EMA && kind != WMA {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if period < 1 {
		return nil, fmt.Errorf("indicator: period %d", period)
	}
	out := make([]*float64, len(closes))
	if len(closes) < period {
		return out, nil
	}

	var raw []float64
	switch {
	case period == 1:
		raw = closes
	case kind == SMA:
		raw = talib.Sma(closes, period)
	case kind == EMA:
		raw = talib.Ema(closes, period)
	default:
		raw = talib.Wma(closes, period)
	}

	for i := period - 1; i < len(raw) && i < len(out); i++ {
		v := raw[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out, nil
}
