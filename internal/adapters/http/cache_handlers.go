package http

import (
	"context"
	"net/http"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/adapters/middleware"
	"github.com/aniview/aniview/internal/application"
	"github.com/aniview/aniview/internal/domain"
)

// CacheHandler exposes cache observability and the forced refresh control.
type CacheHandler struct {
	logger         domain.Logger
	configProvider config.Provider
	refresher      *application.AutoRefresh
}

// NewCacheHandler creates the cache control handler.
func NewCacheHandler(logger domain.Logger, cfgProvider config.Provider, refresher *application.AutoRefresh) *CacheHandler {
	return &CacheHandler{
		logger:         logger,
		configProvider: cfgProvider,
		refresher:      refresher,
	}
}

// RegisterRoutes registers the cache endpoints. Status is public so pages
// can display cache freshness; the forced refresh mutates shared state and
// requires the admin API key.
func (h *CacheHandler) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cache/status", h.handleStatus)

	adminOnly := middleware.AdminAPIKeyMiddleware(h.configProvider, h.logger)
	mux.Handle("POST /api/cache/refresh", adminOnly(http.HandlerFunc(h.handleForceRefresh)))

	h.logger.Info(ctx, "Cache control endpoints registered", "base_path", "/api/cache")
}

func (h *CacheHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.refresher.Status())
}

func (h *CacheHandler) handleForceRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.ForceRefresh(r.Context()); err != nil {
		h.logger.Error(r.Context(), "Forced cache refresh failed", "error", err.Error())
		domain.NewErrorResponse(domain.ErrInternal, "Failed to refresh cache", "").WriteJSON(w, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache refreshed successfully"})
}
