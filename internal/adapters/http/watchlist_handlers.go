package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/domain"
)

// WatchlistRequest is the expected payload for POST /api/watchlist.
type WatchlistRequest struct {
	UserID  string `json:"userId"`
	AnimeID int    `json:"animeId"`
}

// WatchlistHandler serves watchlist reads and writes with the same
// idempotent-replay contract as reviews.
type WatchlistHandler struct {
	logger         domain.Logger
	configProvider config.Provider
	storage        domain.Storage
	idempotency    domain.IdempotencyStore
}

// NewWatchlistHandler creates the watchlist handler.
func NewWatchlistHandler(
	logger domain.Logger,
	cfgProvider config.Provider,
	storage domain.Storage,
	idempotency domain.IdempotencyStore,
) *WatchlistHandler {
	return &WatchlistHandler{
		logger:         logger,
		configProvider: cfgProvider,
		storage:        storage,
		idempotency:    idempotency,
	}
}

// RegisterRoutes registers the watchlist endpoints.
func (h *WatchlistHandler) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /api/watchlist/{userId}", h.handleList)
	mux.HandleFunc("POST /api/watchlist", h.handleAdd)
	mux.HandleFunc("DELETE /api/watchlist/{userId}/{animeId}", h.handleRemove)

	h.logger.Info(ctx, "Watchlist endpoints registered", "base_path", "/api/watchlist")
}

func (h *WatchlistHandler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		domain.NewErrorResponse(domain.ErrBadRequest, "User ID is required", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	entries, err := h.storage.Watchlist(r.Context(), userID)
	if err != nil {
		h.logger.Error(r.Context(), "Failed to list watchlist", "user_id", userID, "error", err.Error())
		domain.NewErrorResponse(domain.ErrInternal, "Failed to fetch watchlist", "").WriteJSON(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"watchlist": entries})
}

func (h *WatchlistHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AnimeID <= 0 {
		domain.NewErrorResponse(domain.ErrBadRequest, "userId and animeId are required", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	// Same claim-then-release discipline as reviews: a key claimed by a
	// failed write is released so the retry is applied rather than
	// suppressed as a duplicate.
	key := r.Header.Get(idempotencyKeyHeader)
	if key != "" {
		ttl := time.Duration(h.configProvider.Get().Auth.IdempotencyTTLSeconds) * time.Second
		first, err := h.idempotency.MarkApplied(r.Context(), key, ttl)
		if err != nil {
			h.logger.Error(r.Context(), "Idempotency check failed", "error", err.Error())
			domain.NewErrorResponse(domain.ErrInternal, "Failed to process request", "").WriteJSON(w, http.StatusInternalServerError)
			return
		}
		if !first {
			writeJSON(w, http.StatusOK, map[string]interface{}{"duplicate": true})
			return
		}
	}

	entry := &domain.WatchlistEntry{
		UserID:  req.UserID,
		AnimeID: req.AnimeID,
		AddedAt: time.Now().UTC(),
	}
	if err := h.storage.UpsertWatchlistEntry(r.Context(), entry); err != nil {
		h.logger.Error(r.Context(), "Failed to add watchlist entry", "user_id", req.UserID, "anime_id", req.AnimeID, "error", err.Error())
		if key != "" {
			if relErr := h.idempotency.Release(r.Context(), key); relErr != nil {
				h.logger.Error(r.Context(), "Failed to release idempotency key after write failure", "error", relErr.Error())
			}
		}
		domain.NewErrorResponse(domain.ErrInternal, "Failed to update watchlist", "").WriteJSON(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *WatchlistHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	animeID, err := strconv.Atoi(r.PathValue("animeId"))
	if userID == "" || err != nil || animeID <= 0 {
		domain.NewErrorResponse(domain.ErrBadRequest, "User ID and a positive anime ID are required", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	if err := h.storage.DeleteWatchlistEntry(r.Context(), userID, animeID); err != nil {
		h.logger.Error(r.Context(), "Failed to delete watchlist entry", "user_id", userID, "anime_id", animeID, "error", err.Error())
		domain.NewErrorResponse(domain.ErrInternal, "Failed to update watchlist", "").WriteJSON(w, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
