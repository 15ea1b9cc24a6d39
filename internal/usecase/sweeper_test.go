package usecase

import (
	"context"
	"testing"
	"time"
)

func TestSweeperDisabledWithoutTTL(t *testing.T) {
	s, _ := newSessions(t)
	sw := NewSweeper(s, "every now and then", 0, nil)
	if err := sw.Start(); err != nil {
		t.Fatalf("disabled sweeper should not parse its schedule: %v", err)
	}
	if err := sw.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSweeperRejectsBadSpec(t *testing.T) {
	s, _ := newSessions(t)
	sw := NewSweeper(s, "every now and then", time.Minute, nil)
	if err := sw.Start(); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestSweeperSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newSessions(t, WithClock(func() time.Time { return now }))
	openChart(t, s, "a", "AAPL", "1d")
	openChart(t, s, "b", "MSFT", "1d")

	sw := NewSweeper(s, "@every 1h", time.Minute, nil)
	if err := sw.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = sw.Stop(context.Background()) }()

	if n := sw.Sweep(); n != 0 {
		t.Fatalf("nothing is idle yet, swept %d", n)
	}
	now = now.Add(2 * time.Minute)
	if n := sw.Sweep(); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d", s.Len())
	}
}
