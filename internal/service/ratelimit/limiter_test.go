package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(3, 2)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("burst token %d denied", i)
		}
	}
	if l.Allow("a") {
		t.Fatal("bucket should be empty")
	}
	if !l.Allow("b") {
		t.Fatal("keys must not share a bucket")
	}

	now = now.Add(500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatal("one token should have refilled")
	}
	if l.Allow("a") {
		t.Fatal("only one token refilled")
	}

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("refill must cap at capacity, token %d denied", i)
		}
	}
	if l.Allow("a") {
		t.Fatal("refill exceeded capacity")
	}
}

func TestLimiterForget(t *testing.T) {
	l := New(1, 0)
	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("no refill configured")
	}
	l.Forget("a")
	if l.Len() != 0 {
		t.Fatalf("len = %d", l.Len())
	}
	if !l.Allow("a") {
		t.Fatal("forgotten key starts with a full bucket")
	}
}
