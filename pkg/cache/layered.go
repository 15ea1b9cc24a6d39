package cache

import (
	"context"
	"time"
)

// LayeredCache is a two-level cache: an in-process memory L1 in front of a
// shared L2 (redis or sqlite). Writes go through to L2 first.
type LayeredCache struct {
	mem   *MemoryCache
	l2    BytesCache
	l1TTL time.Duration
}

// NewLayeredCache puts a memory cache in front of l2. Closing the layered
// cache closes l2 too.
func NewLayeredCache(l2 BytesCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		L1TTL:         30 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		mem:   NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		l2:    l2,
		l1TTL: cfg.L1TTL,
	}
}

// l1TTLFor keeps L1 from outliving the L2 entry.
func (lc *LayeredCache) l1TTLFor(ttl time.Duration) time.Duration {
	if ttl > 0 && (lc.l1TTL <= 0 || ttl < lc.l1TTL) {
		return ttl
	}
	return lc.l1TTL
}

func (lc *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := lc.l2.SetBytes(ctx, key, value, ttl); err != nil {
		// a stale L1 copy must not outlive a failed write
		_ = lc.mem.Delete(ctx, key)
		return err
	}
	return lc.mem.SetBytes(ctx, key, value, lc.l1TTLFor(ttl))
}

func (lc *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, err := lc.mem.GetBytes(ctx, key); err == nil && ok {
		return b, true, nil
	}

	b, ok, err := lc.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = lc.mem.SetBytes(ctx, key, b, lc.l1TTL)
	return b, true, nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.l2.Close()
}

var _ BytesCache = (*LayeredCache)(nil)
