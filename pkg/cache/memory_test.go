package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if _, ok, err := mc.GetBytes(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	in := []byte(`{"a":1}`)
	if err := mc.SetBytes(ctx, "k", in, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	in[0] = 'X'

	got, ok, err := mc.GetBytes(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("stored bytes aliased caller slice: %s", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.SetBytes(ctx, "k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := mc.GetBytes(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.SetBytes(ctx, "a", []byte("1"), 0)
	time.Sleep(time.Millisecond)
	_ = mc.SetBytes(ctx, "b", []byte("2"), 0)
	time.Sleep(time.Millisecond)
	_, _, _ = mc.GetBytes(ctx, "a")
	time.Sleep(time.Millisecond)
	_ = mc.SetBytes(ctx, "c", []byte("3"), 0)

	if _, ok, _ := mc.GetBytes(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok, _ := mc.GetBytes(ctx, "a"); !ok {
		t.Fatalf("expected a to survive")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d, want 2", mc.Len())
	}
}

func TestMemoryCacheDeleteAndClose(t *testing.T) {
	mc := NewMemoryCache()
	ctx := context.Background()
	_ = mc.SetBytes(ctx, "k", []byte("v"), 0)
	_ = mc.Delete(ctx, "k")
	if _, ok, _ := mc.GetBytes(ctx, "k"); ok {
		t.Fatalf("expected delete to remove key")
	}
	_ = mc.Close()
	_ = mc.Close()
}

func TestGenerateKeyWithParams(t *testing.T) {
	if got := GenerateKeyWithParams("overlay", "AAPL", "1d"); got != "overlay:AAPL:1d" {
		t.Fatalf("unexpected key %q", got)
	}
}
