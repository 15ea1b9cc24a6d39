package api

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/surface"
	xlogger "ChartDeck/pkg/logger"
)

// Stream mirrors the session surface to a browser over websocket. Pointer
// moves come back as legends, resizes are applied to the container.
func (h *ChartsEchoHandler) Stream(c echo.Context) error {
	id := c.Param("id")
	src, err := h.sessions.Surface(id)
	if err != nil {
		return h.fail(c, "stream", err)
	}

	key := id + "|" + c.Request().RemoteAddr
	if h.pointers != nil {
		defer h.pointers.Forget(key)
	}

	handle := func(ctx context.Context, msg surface.ClientMessage) (*chart.Legend, error) {
		switch msg.Type {
		case surface.MsgPointer:
			if msg.Pointer == nil {
				return nil, fmt.Errorf("pointer message without pointer")
			}
			if h.pointers != nil && !h.pointers.Allow(key) {
				// the next move supersedes this one
				return nil, nil
			}
			legend, err := h.sessions.Pointer(id, *msg.Pointer)
			if err != nil {
				return nil, err
			}
			return &legend, nil
		case surface.MsgResize:
			return nil, h.sessions.Resize(id, msg.Width, msg.Height)
		default:
			return nil, fmt.Errorf("unknown message type %q", msg.Type)
		}
	}

	if err := h.hub.Serve(c.Response(), c.Request(), src, handle); err != nil {
		h.logger.Warn("chart stream", xlogger.String("session", id), xlogger.Error(err))
	}
	return nil
}
