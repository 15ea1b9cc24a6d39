package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/domain/repository"
	"ChartDeck/pkg/cache"
	"ChartDeck/pkg/logger"
)

var ErrInvalidConfig = errors.New("preferences: invalid overlay config")

const preferencePrefix = "overlay"

// defaultOverlays is the fixed per-interval table used when nothing is persisted.
var defaultOverlays = map[repository.Interval][]models.OverlayDescriptor{
	repository.Interval15m: {
		{Kind: models.KindEMA, Period: 9, Color: "#F59E0B", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindEMA, Period: 21, Color: "#3B82F6", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindSMA, Period: 50, Color: "#A855F7", StrokeWidth: 2, Enabled: false},
	},
	repository.Interval1h: {
		{Kind: models.KindEMA, Period: 20, Color: "#F59E0B", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindEMA, Period: 50, Color: "#3B82F6", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindSMA, Period: 200, Color: "#EF4444", StrokeWidth: 2, Enabled: false},
	},
	repository.Interval1d: {
		{Kind: models.KindSMA, Period: 20, Color: "#F59E0B", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindSMA, Period: 50, Color: "#3B82F6", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindSMA, Period: 200, Color: "#EF4444", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindEMA, Period: 21, Color: "#10B981", StrokeWidth: 2, Enabled: false},
	},
	repository.Interval1wk: {
		{Kind: models.KindSMA, Period: 10, Color: "#F59E0B", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindSMA, Period: 40, Color: "#3B82F6", StrokeWidth: 2, Enabled: true},
		{Kind: models.KindWMA, Period: 20, Color: "#A855F7", StrokeWidth: 2, Enabled: false},
	},
}

// DefaultConfig returns a fresh copy of the default overlays for iv.
// Unknown intervals get the daily defaults.
func DefaultConfig(symbol string, iv repository.Interval) models.OverlayConfig {
	defs, ok := defaultOverlays[iv]
	if !ok {
		defs = defaultOverlays[repository.DefaultInterval()]
	}
	cfg := models.OverlayConfig{Symbol: normalizeSymbol(symbol), Interval: string(iv), Overlays: defs}
	return cfg.Clone()
}

// PreferenceStore persists overlay configs per (symbol, interval) in an
// injected key-value store. Reads never fail: anything unreadable is a miss.
type PreferenceStore struct {
	kv       cache.BytesCache
	validate *validator.Validate
	logger   *logger.Logger
}

func NewPreferenceStore(kv cache.BytesCache, log *logger.Logger) *PreferenceStore {
	if log == nil {
		log = logger.Nop()
	}
	return &PreferenceStore{kv: kv, validate: validator.New(), logger: log}
}

// Key returns the storage key for a selection.
func Key(symbol string, iv repository.Interval) string {
	return cache.GenerateKeyWithParams(preferencePrefix, normalizeSymbol(symbol), iv)
}

func (s *PreferenceStore) Get(ctx context.Context, symbol string, iv repository.Interval) models.OverlayConfig {
	key := Key(symbol, iv)
	b, ok, err := s.kv.GetBytes(ctx, key)
	if err != nil {
		s.logger.Debug("preference read failed, using defaults", logger.String("key", key), logger.Error(err))
		return DefaultConfig(symbol, iv)
	}
	if !ok {
		return DefaultConfig(symbol, iv)
	}

	var overlays []models.OverlayDescriptor
	if err := json.Unmarshal(b, &overlays); err != nil {
		s.logger.Debug("preference record corrupt, using defaults", logger.String("key", key), logger.Error(err))
		return DefaultConfig(symbol, iv)
	}
	cfg := models.OverlayConfig{Symbol: normalizeSymbol(symbol), Interval: string(iv), Overlays: overlays}
	if err := s.check(cfg); err != nil {
		s.logger.Debug("preference record invalid, using defaults", logger.String("key", key), logger.Error(err))
		return DefaultConfig(symbol, iv)
	}
	if cfg.Overlays == nil {
		cfg.Overlays = []models.OverlayDescriptor{}
	}
	return cfg
}

// Set validates and persists cfg synchronously.
func (s *PreferenceStore) Set(ctx context.Context, symbol string, iv repository.Interval, cfg models.OverlayConfig) error {
	if err := s.check(cfg); err != nil {
		return err
	}
	overlays := cfg.Overlays
	if overlays == nil {
		overlays = []models.OverlayDescriptor{}
	}
	b, err := json.Marshal(overlays)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.kv.SetBytes(ctx, Key(symbol, iv), b, 0); err != nil {
		return fmt.Errorf("persist preferences: %w", err)
	}
	return nil
}

// Reset removes the persisted record so Get returns the defaults again.
func (s *PreferenceStore) Reset(ctx context.Context, symbol string, iv repository.Interval) error {
	if err := s.kv.Delete(ctx, Key(symbol, iv)); err != nil {
		return fmt.Errorf("reset preferences: %w", err)
	}
	return nil
}

func (s *PreferenceStore) check(cfg models.OverlayConfig) error {
	for i := range cfg.Overlays {
		if err := s.validate.Struct(&cfg.Overlays[i]); err != nil {
			return fmt.Errorf("%w: overlay %d: %v", ErrInvalidConfig, i, err)
		}
	}
	if key, dup := cfg.DuplicateKey(); dup {
		return fmt.Errorf("%w: duplicate overlay %s", ErrInvalidConfig, key)
	}
	return nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

var _ repository.PreferenceRepository = (*PreferenceStore)(nil)
