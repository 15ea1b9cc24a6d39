package indicator

import (
	"errors"
	"math"
	"testing"
)

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestComputeSMA(t *testing.T) {
	got, err := Compute(SMA, 3, []float64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("length %d", len(got))
	}
	if got[0] != nil || got[1] != nil {
		t.Fatalf("warm-up values should be nil")
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if got[i+2] == nil || !closeTo(*got[i+2], w) {
			t.Fatalf("index %d: got %v want %v", i+2, got[i+2], w)
		}
	}
}

func TestComputeWMA(t *testing.T) {
	got, err := Compute(WMA, 3, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	// (1*1 + 2*2 + 3*3) / 6
	if got[2] == nil || !closeTo(*got[2], 14.0/6.0) {
		t.Fatalf("unexpected wma %v", got[2])
	}
}

func TestComputeEMAWarmup(t *testing.T) {
	got, err := Compute(EMA, 4, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if got[i] != nil {
			t.Fatalf("index %d should be nil", i)
		}
	}
	for i := 3; i < 6; i++ {
		if got[i] == nil {
			t.Fatalf("index %d should have a value", i)
		}
	}
}

func TestComputeShortHistory(t *testing.T) {
	got, err := Compute(SMA, 50, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != nil || got[1] != nil {
		t.Fatalf("expected all nil, got %v", got)
	}
}

func TestComputeErrors(t *testing.T) {
	if _, err := Compute("RSI", 14, make([]float64, 20)); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
	if _, err := Compute(SMA, 0, nil); err == nil {
		t.Fatalf("expected period error")
	}
}
