package logger

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestNewRequiresOutput(t *testing.T) {
	if _, err := New(&Config{Level: "info"}); err == nil {
		t.Fatalf("expected error for empty output")
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartdeck.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("hello", String("k", "v"), Int("n", 1), Float64("f", 1.5), Bool("b", true))
	l.Error("boom", Error(errors.New("x")))
}

func TestNopAndWith(t *testing.T) {
	l := Nop().With(String("session", "abc"))
	l.Warn("discarded")
	l.Debug("discarded")
}

func TestFieldKeyValues(t *testing.T) {
	k, v := Strings("symbols", []string{"A", "B"}).GetKeyValue()
	if k != "symbols" || v != "A, B" {
		t.Fatalf("unexpected %s=%v", k, v)
	}
	k, v = Error(errors.New("bad")).GetKeyValue()
	if k != "error" || v != "bad" {
		t.Fatalf("unexpected %s=%v", k, v)
	}
}
