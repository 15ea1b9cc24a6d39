package chart

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/domain/repository"
	"ChartDeck/pkg/logger"
)

// NormalizedSeries is an ordered bar set with strictly increasing, unique keys.
// It is always rebuilt from a full payload, never patched.
type NormalizedSeries struct {
	Interval repository.Interval
	Bars     []models.Bar
}

// Len returns the number of bars.
func (s NormalizedSeries) Len() int { return len(s.Bars) }

// Empty reports whether the series has no bars.
func (s NormalizedSeries) Empty() bool { return len(s.Bars) == 0 }

// Closes returns the close prices in series order.
func (s NormalizedSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Find returns the index of the bar keyed exactly by t.
func (s NormalizedSeries) Find(t models.TimeKey) (int, bool) {
	i := sort.Search(len(s.Bars), func(i int) bool { return !s.Bars[i].Time.Less(t) })
	if i < len(s.Bars) && s.Bars[i].Time == t {
		return i, true
	}
	return -1, false
}

// DroppedBar records one raw bar rejected during normalization.
type DroppedBar struct {
	Index  int
	Reason string
	Err    error
}

// NormalizeReport summarizes one normalization pass.
type NormalizeReport struct {
	Input      int
	Dropped    []DroppedBar
	Duplicates int
}

const (
	dropReasonTime  = "timestamp"
	dropReasonPrice = "price"
)

// Normalize folds raw bars into a map keyed by their time key, letting a later
// bar overwrite an earlier one with the same key, then emits them in ascending
// key order. Bars that fail to parse are dropped and reported.
func Normalize(raw []models.RawBar, iv repository.Interval) (NormalizedSeries, NormalizeReport) {
	report := NormalizeReport{Input: len(raw)}
	byKey := make(map[models.TimeKey]models.Bar, len(raw))

	for i, rb := range raw {
		key, err := EncodeTime(rb.Date, iv)
		if err != nil {
			report.Dropped = append(report.Dropped, DroppedBar{Index: i, Reason: dropReasonTime, Err: err})
			continue
		}
		bar, err := decodePrices(rb)
		if err != nil {
			report.Dropped = append(report.Dropped, DroppedBar{Index: i, Reason: dropReasonPrice, Err: err})
			continue
		}
		bar.Time = key
		if _, dup := byKey[key]; dup {
			report.Duplicates++
		}
		byKey[key] = bar
	}

	bars := make([]models.Bar, 0, len(byKey))
	for _, b := range byKey {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Less(bars[j].Time) })

	return NormalizedSeries{Interval: iv, Bars: bars}, report
}

func decodePrices(rb models.RawBar) (models.Bar, error) {
	var (
		b   models.Bar
		err error
	)
	if b.Open, err = toFloat("open", rb.Open); err != nil {
		return b, err
	}
	if b.High, err = toFloat("high", rb.High); err != nil {
		return b, err
	}
	if b.Low, err = toFloat("low", rb.Low); err != nil {
		return b, err
	}
	if b.Close, err = toFloat("close", rb.Close); err != nil {
		return b, err
	}
	// volume is optional on some feeds
	if rb.Volume != nil {
		if b.Volume, err = toFloat("volume", rb.Volume); err != nil {
			return b, err
		}
	}
	return b, nil
}

func toFloat(field string, v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: %s missing", ErrDataQuality, field)
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		p, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", ErrDataQuality, field, n)
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", ErrDataQuality, field, n)
		}
		f = p
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrDataQuality, field, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s not finite", ErrDataQuality, field)
	}
	return f, nil
}

// Normalizer wraps Normalize with data-quality logging and metrics.
type Normalizer struct {
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewNormalizer(log *logger.Logger, m repository.Metrics) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{logger: log, metrics: m}
}

// Normalize runs a pass and reports every dropped bar.
func (n *Normalizer) Normalize(symbol string, raw []models.RawBar, iv repository.Interval) (NormalizedSeries, NormalizeReport) {
	series, report := Normalize(raw, iv)
	for _, d := range report.Dropped {
		n.logger.Warn("dropped bar",
			logger.String("symbol", symbol),
			logger.String("interval", string(iv)),
			logger.Int("index", d.Index),
			logger.String("reason", d.Reason),
			logger.Error(d.Err),
		)
		if n.metrics != nil {
			n.metrics.RecordDroppedBar(d.Reason)
		}
	}
	if report.Duplicates > 0 {
		n.logger.Debug("collapsed duplicate bars",
			logger.String("symbol", symbol),
			logger.Int("duplicates", report.Duplicates),
		)
	}
	return series, report
}
