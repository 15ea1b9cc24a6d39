package api

import (
	"github.com/labstack/echo/v4"

	"ChartDeck/internal/domain/models"
	domrepo "ChartDeck/internal/domain/repository"
	"ChartDeck/internal/repository"
	xhttp "ChartDeck/pkg/http"
	xlogger "ChartDeck/pkg/logger"
)

// PreferencesEchoHandler reads and writes persisted overlay configs.
type PreferencesEchoHandler struct {
	logger *xlogger.Logger
	store  *repository.PreferenceStore
}

func NewPreferencesEchoHandler(logger *xlogger.Logger, store *repository.PreferenceStore) *PreferencesEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PreferencesEchoHandler{logger: logger, store: store}
}

func (h *PreferencesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/preferences")
	g.GET("/:symbol/:interval", h.Get)
	g.PUT("/:symbol/:interval", h.Put)
	g.DELETE("/:symbol/:interval", h.Reset)
}

func (h *PreferencesEchoHandler) Get(c echo.Context) error {
	req := &models.PreferenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg := h.store.Get(c.Request().Context(), req.Symbol, domrepo.Interval(req.Interval))
	return xhttp.SuccessResponse(c, cfg)
}

func (h *PreferencesEchoHandler) Put(c echo.Context) error {
	req := &models.PreferenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	iv := domrepo.Interval(req.Interval)
	cfg := models.OverlayConfig{Symbol: req.Symbol, Interval: req.Interval, Overlays: req.Overlays}
	if err := h.store.Set(c.Request().Context(), req.Symbol, iv, cfg); err != nil {
		appErr := toAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("preferences put", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, h.store.Get(c.Request().Context(), req.Symbol, iv))
}

func (h *PreferencesEchoHandler) Reset(c echo.Context) error {
	req := &models.PreferenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	iv := domrepo.Interval(req.Interval)
	if err := h.store.Reset(c.Request().Context(), req.Symbol, iv); err != nil {
		h.logger.Error("preferences reset", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, h.store.Get(c.Request().Context(), req.Symbol, iv))
}
