package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/models"
	"ChartDeck/internal/service/ratelimit"
	"ChartDeck/internal/surface"
	"ChartDeck/internal/usecase"
	xhttp "ChartDeck/pkg/http"
	xlogger "ChartDeck/pkg/logger"
)

// ChartsEchoHandler exposes chart sessions over HTTP and websocket.
type ChartsEchoHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.ChartSessions
	hub      *surface.Hub
	prefs    *PreferencesEchoHandler
	pointers *ratelimit.Limiter
}

// NewChartsEchoHandler wires the chart routes. pointers throttles websocket
// pointer moves per connection; nil leaves them unthrottled.
func NewChartsEchoHandler(logger *xlogger.Logger, sessions *usecase.ChartSessions, hub *surface.Hub, prefs *PreferencesEchoHandler, pointers *ratelimit.Limiter) *ChartsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ChartsEchoHandler{logger: logger, sessions: sessions, hub: hub, prefs: prefs, pointers: pointers}
}

func (h *ChartsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/charts", h.Open)
	g.GET("/charts/:id", h.State)
	g.DELETE("/charts/:id", h.Close)
	g.POST("/charts/:id/payload", h.ApplyPayload)
	g.POST("/charts/:id/overlays", h.AddOverlay)
	g.PUT("/charts/:id/overlays/:index", h.UpdateOverlay)
	g.DELETE("/charts/:id/overlays/:index", h.RemoveOverlay)
	g.POST("/charts/:id/overlays/:index/toggle", h.ToggleOverlay)
	g.POST("/charts/:id/timeframe", h.Timeframe)
	g.POST("/charts/:id/maximize", h.Maximize)
	g.POST("/charts/:id/resize", h.Resize)
	g.POST("/charts/:id/pointer", h.Pointer)
	g.GET("/charts/:id/render", h.Render)
	g.GET("/ws/charts/:id", h.Stream)

	if h.prefs != nil {
		h.prefs.RegisterRoutes(e)
	}
}

func (h *ChartsEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("charts handler error", xlogger.String("op", op), xlogger.Error(err))
	} else {
		h.logger.Debug("charts request rejected", xlogger.String("op", op), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *ChartsEchoHandler) state(c echo.Context, id string) error {
	st, err := h.sessions.State(id)
	if err != nil {
		return h.fail(c, "state", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *ChartsEchoHandler) Open(c echo.Context) error {
	req := &models.OpenChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id, err := h.sessions.Open(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "open", err)
	}
	return xhttp.CreatedResponse(c, map[string]string{"id": id})
}

func (h *ChartsEchoHandler) State(c echo.Context) error {
	return h.state(c, c.Param("id"))
}

func (h *ChartsEchoHandler) Close(c echo.Context) error {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		return h.fail(c, "close", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *ChartsEchoHandler) ApplyPayload(c echo.Context) error {
	req := &models.AnalysisPayload{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.sessions.ApplyPayload(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.fail(c, "apply_payload", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartsEchoHandler) ToggleOverlay(c echo.Context) error {
	req := &models.OverlayIndexRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.ToggleOverlay(c.Request().Context(), req.ID, req.Index); err != nil {
		return h.fail(c, "toggle_overlay", err)
	}
	return h.state(c, req.ID)
}

func (h *ChartsEchoHandler) UpdateOverlay(c echo.Context) error {
	req := &models.EditOverlayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.UpdateOverlay(c.Request().Context(), req.ID, req.Index, req.Descriptor()); err != nil {
		return h.fail(c, "update_overlay", err)
	}
	return h.state(c, req.ID)
}

func (h *ChartsEchoHandler) AddOverlay(c echo.Context) error {
	req := &models.EditOverlayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.AddOverlay(c.Request().Context(), req.ID, req.Descriptor()); err != nil {
		return h.fail(c, "add_overlay", err)
	}
	return h.state(c, req.ID)
}

func (h *ChartsEchoHandler) RemoveOverlay(c echo.Context) error {
	req := &models.OverlayIndexRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.RemoveOverlay(c.Request().Context(), req.ID, req.Index); err != nil {
		return h.fail(c, "remove_overlay", err)
	}
	return h.state(c, req.ID)
}

func (h *ChartsEchoHandler) Timeframe(c echo.Context) error {
	req := &models.TimeframeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.ChangeTimeframe(c.Request().Context(), req.ID, req.Interval); err != nil {
		return h.fail(c, "timeframe", err)
	}
	return h.state(c, req.ID)
}

func (h *ChartsEchoHandler) Maximize(c echo.Context) error {
	req := &models.MaximizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.SetMaximized(req.ID, req.Maximized); err != nil {
		return h.fail(c, "maximize", err)
	}
	return h.state(c, req.ID)
}

func (h *ChartsEchoHandler) Resize(c echo.Context) error {
	req := &models.ResizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.Resize(req.ID, req.Width, req.Height); err != nil {
		return h.fail(c, "resize", err)
	}
	return h.state(c, req.ID)
}

func (h *ChartsEchoHandler) Pointer(c echo.Context) error {
	req := &models.PointerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	legend, err := h.sessions.Pointer(req.ID, chart.PointerEvent{X: req.X, Y: req.Y, Time: req.Time, InBounds: req.InBounds})
	if err != nil {
		return h.fail(c, "pointer", err)
	}
	return xhttp.SuccessResponse(c, legend)
}

func (h *ChartsEchoHandler) Render(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.sessions.Render(c.Param("id"), &buf); err != nil {
		return h.fail(c, "render", err)
	}
	return xhttp.HTMLResponse(c, buf.Bytes())
}
