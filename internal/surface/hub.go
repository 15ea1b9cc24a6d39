package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ChartDeck/internal/chart"
	"ChartDeck/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Outbound message types.
const (
	MsgCommand = "command"
	MsgLegend  = "legend"
	MsgError   = "error"
)

// Inbound message types.
const (
	MsgPointer = "pointer"
	MsgResize  = "resize"
)

// Envelope is what the bridge writes to the browser.
type Envelope struct {
	Type    string        `json:"type"`
	Command *Command      `json:"command,omitempty"`
	Legend  *chart.Legend `json:"legend,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ClientMessage is what the browser sends: pointer moves and layout resizes.
type ClientMessage struct {
	Type    string              `json:"type"`
	Pointer *chart.PointerEvent `json:"pointer,omitempty"`
	Width   int                 `json:"width,omitempty"`
	Height  int                 `json:"height,omitempty"`
}

// ClientHandler handles one inbound message and may return a legend to send back.
type ClientHandler func(ctx context.Context, msg ClientMessage) (*chart.Legend, error)

// Hub mirrors retained surface commands to websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithOriginCheck restricts websocket upgrades to origins allowed by fn.
// Requests without an Origin header are passed to fn as "".
func WithOriginCheck(fn func(origin string) bool) HubOption {
	return func(h *Hub) {
		if fn != nil {
			h.upgrader.CheckOrigin = func(r *http.Request) bool { return fn(r.Header.Get("Origin")) }
		}
	}
}

func NewHub(log *logger.Logger, opts ...HubOption) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// enqueue drops the client when its buffer is full.
func (c *client) enqueue(b []byte) {
	select {
	case <-c.done:
	case c.send <- b:
	default:
		c.close()
	}
}

// Serve upgrades the request, replays the surface state and then streams
// every surface command until the client leaves or the surface is destroyed.
// It blocks for the lifetime of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, src *Retained, handle ClientHandler) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	// room for the replay (resize, then add + set_data per series) on top of live traffic
	c := &client{conn: conn, send: make(chan []byte, sendBuffer+2*src.Len()+1), done: make(chan struct{})}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.close()
	}()

	go h.writeLoop(c)

	unwatch := src.ReplayAndWatch(func(cmd Command) {
		c.enqueue(mustEnvelope(Envelope{Type: MsgCommand, Command: &cmd}))
		if cmd.Op == OpDestroy {
			c.close()
		}
	})
	defer unwatch()

	h.logger.Debug("chart client connected", logger.String("container", src.ContainerID()))
	h.readLoop(r.Context(), c, handle)
	h.logger.Debug("chart client disconnected", logger.String("container", src.ContainerID()))
	return nil
}

func (h *Hub) readLoop(ctx context.Context, c *client, handle ClientHandler) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("chart client read", logger.Error(err))
			}
			return
		}
		if handle == nil {
			continue
		}
		legend, err := handle(ctx, msg)
		if err != nil {
			c.enqueue(mustEnvelope(Envelope{Type: MsgError, Error: err.Error()}))
			continue
		}
		if legend != nil {
			c.enqueue(mustEnvelope(Envelope{Type: MsgLegend, Legend: legend}))
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.mu.Unlock()
	for _, c := range list {
		c.close()
	}
}

func mustEnvelope(e Envelope) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		b, _ = json.Marshal(Envelope{Type: MsgError, Error: err.Error()})
	}
	return b
}
