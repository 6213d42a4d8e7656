package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/adapters/metrics"
	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/pkg/safego"
)

// Hub upgrades page connections and fans realtime messages out to all of
// them. It implements domain.UpdateBroadcaster for the scheduler and the
// push consumer.
type Hub struct {
	logger         domain.Logger
	configProvider config.Provider

	mu    sync.RWMutex
	conns map[*Connection]struct{}

	msgMu      sync.RWMutex
	msgHandler func(ctx context.Context, payload []byte)
}

// NewHub creates a new realtime hub.
func NewHub(logger domain.Logger, cfgProvider config.Provider) *Hub {
	return &Hub{
		logger:         logger,
		configProvider: cfgProvider,
		conns:          make(map[*Connection]struct{}),
	}
}

// SetMessageHandler installs the callback invoked for each text frame a
// page sends. Set once during bootstrap, before connections arrive.
func (h *Hub) SetMessageHandler(handler func(ctx context.Context, payload []byte)) {
	h.msgMu.Lock()
	h.msgHandler = handler
	h.msgMu.Unlock()
}

// Broadcast queues msg on every connected page. A failed queue attempt is
// logged and skipped; the connection's own lifecycle handles teardown.
func (h *Hub) Broadcast(msg domain.BaseMessage) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(msg); err != nil {
			h.logger.Warn(c.Context(), "Failed to queue broadcast message", "type", msg.Type, "remote_addr", c.RemoteAddr(), "error", err.Error())
		}
	}
}

// ConnectionCount returns the number of currently connected pages.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every connection, used during graceful shutdown.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*Connection]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close(websocket.StatusGoingAway, reason)
		metrics.DecrementRealtimeClients()
	}
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	metrics.IncrementRealtimeClients()
}

func (h *Hub) deregister(c *Connection) {
	h.mu.Lock()
	_, present := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()
	if present {
		metrics.DecrementRealtimeClients()
	}
}

// ServeHTTP is the entry point for WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connCtx, cancelConnCtx := context.WithCancel(context.Background())

	opts := websocket.AcceptOptions{
		Subprotocols: []string{"json.v1"},
	}
	c, err := websocket.Accept(w, r, &opts)
	if err != nil {
		h.logger.Error(r.Context(), "WebSocket upgrade failed", "error", err.Error(), "remote_addr", r.RemoteAddr)
		cancelConnCtx()
		return
	}

	writeTimeout := time.Duration(h.configProvider.Get().App.WriteTimeoutSeconds) * time.Second
	conn := NewConnection(connCtx, cancelConnCtx, c, r.RemoteAddr, h.logger, writeTimeout)

	h.logger.Info(connCtx, "Realtime page connected", "remote_addr", conn.RemoteAddr(), "subprotocol", c.Subprotocol())
	h.register(conn)

	if err := conn.WriteJSON(domain.NewReadyMessage()); err != nil {
		h.logger.Error(connCtx, "Failed to send 'ready' message to page", "error", err.Error())
		h.deregister(conn)
		_ = conn.Close(websocket.StatusInternalError, "ready send failed")
		return
	}

	safego.Execute(connCtx, h.logger, "RealtimeReadLoop-"+conn.RemoteAddr(), func() {
		defer func() {
			h.deregister(conn)
			_ = conn.Close(websocket.StatusNormalClosure, "connection ended")
			h.logger.Info(connCtx, "Realtime page disconnected", "remote_addr", conn.RemoteAddr())
		}()
		h.readLoop(connCtx, conn)
	})
}

// readLoop drains inbound frames, handing text frames to the installed
// message handler. Reading is required regardless so control frames are
// processed and peer closes are observed.
func (h *Hub) readLoop(connCtx context.Context, conn *Connection) {
	for {
		msgType, payload, err := conn.ReadMessage(connCtx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				h.logger.Info(connCtx, "WebSocket connection closed by peer", "status_code", closeStatus)
			} else if errors.Is(err, context.Canceled) || connCtx.Err() != nil {
				h.logger.Info(connCtx, "WebSocket connection context canceled")
			} else if closeStatus == -1 && (strings.Contains(strings.ToLower(err.Error()), "eof") || strings.Contains(strings.ToLower(err.Error()), "closed")) {
				h.logger.Info(connCtx, "WebSocket read EOF, peer likely disconnected abruptly", "error", err.Error())
			} else {
				h.logger.Error(connCtx, "Error reading from WebSocket", "error", err.Error(), "close_status_code", closeStatus)
			}
			return
		}
		if msgType != websocket.MessageText {
			h.logger.Debug(connCtx, "Ignoring non-text message from page", "type", msgType.String())
			continue
		}
		h.msgMu.RLock()
		handler := h.msgHandler
		h.msgMu.RUnlock()
		if handler == nil {
			h.logger.Debug(connCtx, "No page message handler installed, dropping message", "payload_len", len(payload))
			continue
		}
		handler(connCtx, payload)
	}
}
