package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/domain"
)

const idempotencyKeyHeader = "X-Idempotency-Key"

// CreateReviewRequest is the expected payload for POST /api/reviews.
type CreateReviewRequest struct {
	AnimeID int    `json:"animeId"`
	UserID  string `json:"userId"`
	Rating  int    `json:"rating"`
	Text    string `json:"text"`
	Season  string `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
}

// ReviewHandler serves review reads and writes. Writes honor the
// X-Idempotency-Key header carried by offline-action replays: a key seen
// before turns the request into a successful no-op.
type ReviewHandler struct {
	logger         domain.Logger
	configProvider config.Provider
	storage        domain.Storage
	idempotency    domain.IdempotencyStore
}

// NewReviewHandler creates the review handler.
func NewReviewHandler(
	logger domain.Logger,
	cfgProvider config.Provider,
	storage domain.Storage,
	idempotency domain.IdempotencyStore,
) *ReviewHandler {
	return &ReviewHandler{
		logger:         logger,
		configProvider: cfgProvider,
		storage:        storage,
		idempotency:    idempotency,
	}
}

// RegisterRoutes registers the review endpoints.
func (h *ReviewHandler) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reviews/{animeId}", h.handleList)
	mux.HandleFunc("POST /api/reviews", h.handleCreate)

	h.logger.Info(ctx, "Review endpoints registered", "base_path", "/api/reviews")
}

func (h *ReviewHandler) handleList(w http.ResponseWriter, r *http.Request) {
	animeID, err := strconv.Atoi(r.PathValue("animeId"))
	if err != nil || animeID <= 0 {
		domain.NewErrorResponse(domain.ErrBadRequest, "Anime ID must be a positive integer", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	reviews, err := h.storage.ReviewsForAnime(r.Context(), animeID)
	if err != nil {
		h.logger.Error(r.Context(), "Failed to list reviews", "anime_id", animeID, "error", err.Error())
		domain.NewErrorResponse(domain.ErrInternal, "Failed to fetch reviews", "").WriteJSON(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}

func (h *ReviewHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
		return
	}
	if req.AnimeID <= 0 || req.UserID == "" {
		domain.NewErrorResponse(domain.ErrBadRequest, "animeId and userId are required", "").WriteJSON(w, http.StatusBadRequest)
		return
	}
	if req.Rating < 1 || req.Rating > 10 {
		domain.NewErrorResponse(domain.ErrBadRequest, "rating must be between 1 and 10", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	// Claim the idempotency key before writing so concurrent replays of
	// the same action cannot both apply. A claim taken by a write that
	// then fails is released again: the action stays queued client-side
	// and its next replay must be applied, not answered as a duplicate.
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

	review := &domain.Review{
		ID:        uuid.NewString(),
		AnimeID:   req.AnimeID,
		UserID:    req.UserID,
		Rating:    req.Rating,
		Text:      req.Text,
		Season:    req.Season,
		Episode:   req.Episode,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.storage.AddReview(r.Context(), review); err != nil {
		h.logger.Error(r.Context(), "Failed to store review", "anime_id", req.AnimeID, "error", err.Error())
		if key != "" {
			if relErr := h.idempotency.Release(r.Context(), key); relErr != nil {
				h.logger.Error(r.Context(), "Failed to release idempotency key after write failure", "error", relErr.Error())
			}
		}
		domain.NewErrorResponse(domain.ErrInternal, "Failed to store review", "").WriteJSON(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}
