package surface

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/models"
)

func dialSurface(t *testing.T, h *Hub, r *Retained) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = h.Serve(w, req, r, nil)
	}))
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readCommands feeds commands to fn until it returns true.
func readCommands(t *testing.T, conn *websocket.Conn, fn func(Command) bool) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		if env.Type == MsgCommand && env.Command != nil && fn(*env.Command) {
			return
		}
	}
}

func TestServeMirrorsChangesRacingTheConnect(t *testing.T) {
	h := NewHub(nil)
	t.Cleanup(h.CloseAll)
	r := newRetained(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		churn(r, 40)
	}()
	conn := dialSurface(t, h, r)
	<-done
	// the last series created marks the end of the churn, live or replayed
	end, err := r.AddSeries(chart.SeriesLine, chart.SeriesStyle{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = end.SetData([]chart.SeriesPoint{{Time: models.UnixKey(-1), Value: -1}})

	m := newMirror()
	readCommands(t, conn, func(cmd Command) bool {
		m.apply(cmd)
		return cmd.Op == OpSetData && cmd.SeriesID == end.ID()
	})
	m.matches(t, r)
}

func TestServeReplaysLargeSurface(t *testing.T) {
	h := NewHub(nil)
	t.Cleanup(h.CloseAll)
	r := newRetained(t)
	const n = 300
	for i := 0; i < n; i++ {
		s, err := r.AddSeries(chart.SeriesLine, chart.SeriesStyle{})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		_ = s.SetData([]chart.SeriesPoint{{Time: models.UnixKey(int64(i)), Value: 1}})
	}

	conn := dialSurface(t, h, r)
	seen := 0
	readCommands(t, conn, func(cmd Command) bool {
		if cmd.Op == OpSetData {
			seen++
		}
		return seen == n
	})
}

func TestServeRejectsForeignOrigin(t *testing.T) {
	h := NewHub(nil, WithOriginCheck(func(origin string) bool {
		return origin == "" || origin == "https://charts.example.com"
	}))
	t.Cleanup(h.CloseAll)
	r := newRetained(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = h.Serve(w, req, r, nil)
	}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	if err == nil {
		t.Fatal("foreign origin upgraded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("resp = %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://charts.example.com"}})
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	_ = conn.Close()
}
