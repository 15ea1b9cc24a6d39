package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyCache wraps a memory cache and can be told to fail writes or count reads.
type flakyCache struct {
	*MemoryCache
	failSet bool
	reads   int
}

func (f *flakyCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	f.reads++
	return f.MemoryCache.GetBytes(ctx, key)
}

func (f *flakyCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failSet {
		return errors.New("l2 down")
	}
	return f.MemoryCache.SetBytes(ctx, key, value, ttl)
}

func newLayered(t *testing.T, opts ...LayeredOption) (*LayeredCache, *flakyCache) {
	t.Helper()
	l2 := &flakyCache{MemoryCache: NewMemoryCache()}
	lc := NewLayeredCache(l2, opts...)
	t.Cleanup(func() { _ = lc.Close() })
	return lc, l2
}

func TestLayeredCacheReadsThroughAndFillsL1(t *testing.T) {
	lc, l2 := newLayered(t)
	ctx := context.Background()
	_ = l2.MemoryCache.SetBytes(ctx, "overlay:AAPL:1d", []byte("v1"), 0)

	for i := 0; i < 3; i++ {
		b, ok, err := lc.GetBytes(ctx, "overlay:AAPL:1d")
		if err != nil || !ok || string(b) != "v1" {
			t.Fatalf("get %d: %q ok=%v err=%v", i, b, ok, err)
		}
	}
	if l2.reads != 1 {
		t.Fatalf("l2 reads = %d, want 1", l2.reads)
	}
}

func TestLayeredCacheWritesThrough(t *testing.T) {
	lc, l2 := newLayered(t)
	ctx := context.Background()

	if err := lc.SetBytes(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if b, ok, _ := l2.MemoryCache.GetBytes(ctx, "k"); !ok || string(b) != "v" {
		t.Fatalf("l2 not written: %q ok=%v", b, ok)
	}

	if err := lc.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := lc.GetBytes(ctx, "k"); ok {
		t.Fatal("deleted key still visible")
	}
}

func TestLayeredCacheFailedWriteDropsL1(t *testing.T) {
	lc, l2 := newLayered(t)
	ctx := context.Background()
	_ = lc.SetBytes(ctx, "k", []byte("old"), 0)

	l2.failSet = true
	if err := lc.SetBytes(ctx, "k", []byte("new"), 0); err == nil {
		t.Fatal("expected l2 failure")
	}
	b, ok, _ := lc.GetBytes(ctx, "k")
	if !ok || string(b) != "old" {
		t.Fatalf("got %q ok=%v, want the value still in l2", b, ok)
	}
}

func TestLayeredCacheL1Expires(t *testing.T) {
	lc, l2 := newLayered(t, WithLayeredL1TTL(time.Millisecond))
	ctx := context.Background()
	_ = lc.SetBytes(ctx, "k", []byte("v1"), 0)

	// another replica updates l2 directly
	_ = l2.MemoryCache.SetBytes(ctx, "k", []byte("v2"), 0)
	time.Sleep(5 * time.Millisecond)

	if b, _, _ := lc.GetBytes(ctx, "k"); string(b) != "v2" {
		t.Fatalf("got %q, want the l2 update after L1 expiry", b)
	}
}
