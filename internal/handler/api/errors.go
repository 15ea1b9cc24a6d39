package api

import (
	"errors"
	"net/http"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/repository"
	"ChartDeck/internal/usecase"
	xhttp "ChartDeck/pkg/http"
)

// toAppError maps domain errors onto HTTP application errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound), errors.Is(err, chart.ErrSessionClosed):
		return xhttp.NewAppError("ERR_SESSION_NOT_FOUND", "id", "chart session not found", http.StatusNotFound).WithError(err)
	case errors.Is(err, chart.ErrOverlayIndex):
		return xhttp.NewAppError("ERR_OVERLAY_INDEX", "index", "overlay index out of range", http.StatusBadRequest).WithError(err)
	case errors.Is(err, chart.ErrDuplicateOverlay):
		return xhttp.NewAppError("ERR_DUPLICATE_OVERLAY", "", "overlay already configured", http.StatusBadRequest).WithError(err)
	case errors.Is(err, chart.ErrInvalidOverlay), errors.Is(err, repository.ErrInvalidConfig):
		return xhttp.NewAppError("ERR_INVALID_OVERLAY", "", "invalid overlay", http.StatusBadRequest).WithError(err)
	case errors.Is(err, chart.ErrInvalidInterval):
		return xhttp.NewAppError("ERR_INVALID_INTERVAL", "interval", "unsupported interval", http.StatusBadRequest).
			WithParam("options", []string{"15m", "1h", "1d", "1wk"}).
			WithError(err)
	case errors.Is(err, chart.ErrSuperseded):
		return xhttp.NewAppError("ERR_SUPERSEDED", "", "payload superseded by the current selection", http.StatusConflict).WithError(err)
	case errors.Is(err, usecase.ErrContainerInUse):
		return xhttp.NewAppError("ERR_CONTAINER_IN_USE", "container_id", "container already hosts a chart", http.StatusConflict).WithError(err)
	case errors.Is(err, chart.ErrSurfaceAllocation):
		return xhttp.NewAppError("ERR_SURFACE_ALLOCATION", "", "chart surface could not be allocated", http.StatusInternalServerError).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
