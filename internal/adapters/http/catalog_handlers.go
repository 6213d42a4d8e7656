package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aniview/aniview/internal/application"
	"github.com/aniview/aniview/internal/domain"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
)

// pageEnvelope mirrors the upstream catalog's response shape so clients see
// the same payload whether it was served from cache or fetched live.
type pageEnvelope struct {
	Data struct {
		Page *domain.CatalogPage `json:"Page"`
	} `json:"data"`
}

type mediaEnvelope struct {
	Data struct {
		Media *domain.AnimeMedia `json:"Media"`
	} `json:"data"`
}

// CatalogHandler serves the public catalog read endpoints.
type CatalogHandler struct {
	logger  domain.Logger
	service *application.CatalogService
}

// NewCatalogHandler creates the catalog read handler.
func NewCatalogHandler(logger domain.Logger, service *application.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		logger:  logger,
		service: service,
	}
}

// RegisterRoutes registers one endpoint per listing view plus search and
// detail. Literal listing paths take precedence over the {id} wildcard.
func (h *CatalogHandler) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	for _, kind := range []domain.ListingKind{
		domain.ListingTrending,
		domain.ListingPopular,
		domain.ListingAiring,
		domain.ListingUpcoming,
		domain.ListingTopRated,
		domain.ListingAllTimePopular,
	} {
		k := kind
		mux.HandleFunc("GET /api/anime/"+k.String(), func(w http.ResponseWriter, r *http.Request) {
			h.handleListing(w, r, k)
		})
	}
	mux.HandleFunc("GET /api/anime/search/{query}", h.handleSearch)
	mux.HandleFunc("GET /api/anime/{id}", h.handleDetail)

	h.logger.Info(ctx, "Catalog endpoints registered", "base_path", "/api/anime")
}

func (h *CatalogHandler) handleListing(w http.ResponseWriter, r *http.Request, kind domain.ListingKind) {
	page, perPage := pagination(r)

	result, err := h.service.Listing(r.Context(), domain.ListingQuery{Kind: kind, Page: page, PerPage: perPage})
	if err != nil {
		h.logger.Error(r.Context(), "Listing request failed", "kind", kind.String(), "page", page, "error", err.Error())
		domain.NewErrorResponse(domain.ErrUpstreamUnavailable, "Failed to fetch anime data", "").WriteJSON(w, http.StatusBadGateway)
		return
	}

	writePage(w, result)
}

func (h *CatalogHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("query")
	page, perPage := pagination(r)

	result, err := h.service.Search(r.Context(), term, page, perPage)
	if err != nil {
		if errors.Is(err, application.ErrSearchTermTooShort) {
			domain.NewErrorResponse(domain.ErrBadRequest, "Search term must be at least 2 characters", "").WriteJSON(w, http.StatusBadRequest)
			return
		}
		h.logger.Error(r.Context(), "Search request failed", "term", term, "error", err.Error())
		domain.NewErrorResponse(domain.ErrUpstreamUnavailable, "Failed to search anime", "").WriteJSON(w, http.StatusBadGateway)
		return
	}

	writePage(w, result)
}

func (h *CatalogHandler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		domain.NewErrorResponse(domain.ErrBadRequest, "Anime ID must be a positive integer", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	item, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.logger.Error(r.Context(), "Detail request failed", "id", id, "error", err.Error())
		domain.NewErrorResponse(domain.ErrUpstreamUnavailable, "Failed to fetch anime details", "").WriteJSON(w, http.StatusBadGateway)
		return
	}

	var envelope mediaEnvelope
	envelope.Data.Media = item
	writeJSON(w, http.StatusOK, envelope)
}

// pagination reads page and perPage query parameters, falling back to the
// defaults on absence or garbage.
func pagination(r *http.Request) (int, int) {
	page := defaultPage
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	perPage := defaultPerPage
	if raw := r.URL.Query().Get("perPage"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			perPage = n
		}
	}
	return page, perPage
}

func writePage(w http.ResponseWriter, page *domain.CatalogPage) {
	var envelope pageEnvelope
	envelope.Data.Page = page
	writeJSON(w, http.StatusOK, envelope)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) // Best effort, error from Encode is not typically handled here.
}
