package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type openRequest struct {
	ID          string `param:"id" validate:"required"`
	ContainerID string `json:"container_id" validate:"required"`
	Interval    string `json:"interval" default:"1d" validate:"oneof=15m 1h 1d 1wk"`
	Width       int    `json:"width" default:"960" validate:"gte=1,lte=10000"`
}

func bindRequest(t *testing.T, body string, req interface{}) interface{} {
	t.Helper()
	e := echo.New()
	r := httptest.NewRequest(http.MethodPost, "/charts/abc", strings.NewReader(body))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(r, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	return ReadAndValidateRequest(c, req)
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	var req openRequest
	if errs := bindRequest(t, `{"container_id":"main"}`, &req); errs != nil {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if req.ID != "abc" || req.Interval != "1d" || req.Width != 960 {
		t.Fatalf("req = %+v", req)
	}
}

func TestReadAndValidateRequestReportsJSONFieldNames(t *testing.T) {
	var req openRequest
	errs, ok := bindRequest(t, `{"interval":"2h","width":20000}`, &req).([]ValidationError)
	if !ok {
		t.Fatalf("expected []ValidationError")
	}
	got := map[string]string{}
	for _, e := range errs {
		got[e.Field] = e.Code
	}
	want := map[string]string{
		"container_id": "ERR_REQUIRED",
		"interval":     "ERR_ONEOF",
		"width":        "ERR_LTE",
	}
	for field, code := range want {
		if got[field] != code {
			t.Fatalf("field %s: code %q, want %q (all: %+v)", field, got[field], code, errs)
		}
	}
}

func TestReadAndValidateRequestRejectsMalformedBody(t *testing.T) {
	var req openRequest
	errs, ok := bindRequest(t, `{"container_id":`, &req).([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Code != "ERR_BIND" {
		t.Fatalf("errs = %+v", errs)
	}
}
