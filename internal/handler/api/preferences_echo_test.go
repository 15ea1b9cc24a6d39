package api

import (
	"encoding/json"
	"net/http"
	"testing"
)

type prefsView struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Overlays []struct {
		Kind    string `json:"kind"`
		Period  int    `json:"period"`
		Enabled bool   `json:"enabled"`
	} `json:"overlays"`
}

func decodePrefs(t *testing.T, env envelope) prefsView {
	t.Helper()
	var p prefsView
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode prefs: %v (%s)", err, env.Data)
	}
	return p
}

func TestPreferencesRoundTrip(t *testing.T) {
	a := newTestAPI(t)
	path := "/api/preferences/aapl/15m"

	code, env := a.do(t, http.MethodGet, path, "")
	if code != http.StatusOK {
		t.Fatalf("get: %d", code)
	}
	p := decodePrefs(t, env)
	if p.Symbol != "AAPL" || len(p.Overlays) != 3 || p.Overlays[0].Kind != "EMA" || p.Overlays[0].Period != 9 {
		t.Fatalf("defaults = %+v", p)
	}

	body := `{"overlays":[{"kind":"SMA","period":30,"color":"#111","strokeWidth":1,"enabled":true}]}`
	code, env = a.do(t, http.MethodPut, path, body)
	if code != http.StatusOK {
		t.Fatalf("put: %d %s", code, env.Data)
	}
	if p := decodePrefs(t, env); len(p.Overlays) != 1 || p.Overlays[0].Period != 30 {
		t.Fatalf("after put = %+v", p)
	}

	// a chart opened on the same selection picks up the stored config
	id := a.open(t, "main", "AAPL", "15m")
	_, env = a.do(t, http.MethodGet, "/api/charts/"+id, "")
	if st := decodeState(t, env); len(st.Config.Overlays) != 1 {
		t.Fatalf("chart config = %+v", st.Config.Overlays)
	}

	code, env = a.do(t, http.MethodDelete, path, "")
	if code != http.StatusOK {
		t.Fatalf("reset: %d", code)
	}
	if p := decodePrefs(t, env); len(p.Overlays) != 3 {
		t.Fatalf("after reset = %+v", p)
	}
}

func TestPreferencesValidation(t *testing.T) {
	a := newTestAPI(t)
	if code, _ := a.do(t, http.MethodGet, "/api/preferences/AAPL/3d", ""); code != http.StatusBadRequest {
		t.Fatalf("bad interval: %d", code)
	}

	invalid := `{"overlays":[{"kind":"SMA","period":0,"color":"#111","strokeWidth":1}]}`
	if code, _ := a.do(t, http.MethodPut, "/api/preferences/AAPL/1d", invalid); code != http.StatusBadRequest {
		t.Fatalf("invalid period: %d", code)
	}

	dup := `{"overlays":[
		{"kind":"SMA","period":20,"color":"#111","strokeWidth":1},
		{"kind":"SMA","period":20,"color":"#222","strokeWidth":2}
	]}`
	code, env := a.do(t, http.MethodPut, "/api/preferences/AAPL/1d", dup)
	if code != http.StatusBadRequest || errorCode(t, env) != "ERR_INVALID_OVERLAY" {
		t.Fatalf("duplicate: %d %s", code, env.Data)
	}
}
