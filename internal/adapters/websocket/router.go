package websocket

import (
	"context"
	"net/http"

	"github.com/aniview/aniview/internal/domain"
)

// Router registers the realtime WebSocket endpoint on the shared mux.
type Router struct {
	logger domain.Logger
	hub    *Hub
}

// NewRouter creates a new WebSocket router.
func NewRouter(logger domain.Logger, hub *Hub) *Router {
	return &Router{
		logger: logger,
		hub:    hub,
	}
}

// RegisterRoutes sets up the WebSocket endpoint. The endpoint is
// unauthenticated: it only ever pushes cache-update and push-relay notices,
// never user data.
func (r *Router) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	mux.Handle("GET /ws", r.hub)
	r.logger.Info(ctx, "Realtime WebSocket endpoint registered", "pattern", "GET /ws")
}
