package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aniview/aniview/internal/domain"
)

// PushHandler stores and removes browser push subscriptions.
type PushHandler struct {
	logger domain.Logger
	store  domain.PushSubscriptionStore
}

// NewPushHandler creates the push subscription handler.
func NewPushHandler(logger domain.Logger, store domain.PushSubscriptionStore) *PushHandler {
	return &PushHandler{
		logger: logger,
		store:  store,
	}
}

// RegisterRoutes registers the push subscription endpoints.
func (h *PushHandler) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("POST /api/push/subscribe", h.handleSubscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", h.handleUnsubscribe)

	h.logger.Info(ctx, "Push subscription endpoints registered", "base_path", "/api/push")
}

func (h *PushHandler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var sub domain.PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid subscription payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
		return
	}
	if sub.Endpoint == "" {
		domain.NewErrorResponse(domain.ErrBadRequest, "Subscription endpoint is required", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	if err := h.store.Save(r.Context(), &sub); err != nil {
		h.logger.Error(r.Context(), "Failed to store push subscription", "error", err.Error())
		domain.NewErrorResponse(domain.ErrInternal, "Failed to store subscription", "").WriteJSON(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Subscribed"})
}

func (h *PushHandler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var sub domain.PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid subscription payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
		return
	}
	if sub.Endpoint == "" {
		domain.NewErrorResponse(domain.ErrBadRequest, "Subscription endpoint is required", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	if err := h.store.Remove(r.Context(), sub.Endpoint); err != nil {
		h.logger.Error(r.Context(), "Failed to remove push subscription", "error", err.Error())
		domain.NewErrorResponse(domain.ErrInternal, "Failed to remove subscription", "").WriteJSON(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Unsubscribed"})
}
