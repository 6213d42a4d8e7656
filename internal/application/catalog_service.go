package application

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/aniview/aniview/internal/adapters/metrics"
	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/pkg/cachekeys"
)

// ErrSearchTermTooShort is returned for search terms under two characters.
// This is a precondition of the search operation, not a cache decision.
var ErrSearchTermTooShort = errors.New("search term must be at least 2 characters")

// CatalogService serves catalog reads through the response cache. A cache
// hit is synthesized into the same shape as a live upstream response, so
// callers cannot distinguish the two.
type CatalogService struct {
	logger  domain.Logger
	cache   domain.ListingCache
	catalog domain.CatalogClient
}

// NewCatalogService creates the cache-aware catalog read service.
func NewCatalogService(logger domain.Logger, cache domain.ListingCache, catalog domain.CatalogClient) *CatalogService {
	return &CatalogService{
		logger:  logger,
		cache:   cache,
		catalog: catalog,
	}
}

// Listing returns one page of the given listing view, from cache when a
// live entry exists, otherwise from upstream (caching the result).
func (s *CatalogService) Listing(ctx context.Context, q domain.ListingQuery) (*domain.CatalogPage, error) {
	resource := q.Kind.String()
	key := cachekeys.ListingKey(resource, q.Page, q.PerPage)

	if items, ok := s.cache.Get(key); ok {
		metrics.ListingCacheHits.WithLabelValues(resource).Inc()
		s.logger.Debug(ctx, "Listing cache hit", "key", key)
		return synthesizePage(items, q.Page, q.PerPage), nil
	}
	metrics.ListingCacheMisses.WithLabelValues(resource).Inc()

	page, err := s.catalog.Listing(ctx, q)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, page.Media)
	return page, nil
}

// Search returns one page of titles matching term. Terms shorter than two
// characters are rejected before the cache is consulted.
func (s *CatalogService) Search(ctx context.Context, term string, page, perPage int) (*domain.CatalogPage, error) {
	if utf8.RuneCountInString(term) < 2 {
		return nil, ErrSearchTermTooShort
	}

	key := cachekeys.SearchKey(term, page, perPage)
	if items, ok := s.cache.Get(key); ok {
		metrics.ListingCacheHits.WithLabelValues("search").Inc()
		s.logger.Debug(ctx, "Search cache hit", "key", key)
		return synthesizePage(items, page, perPage), nil
	}
	metrics.ListingCacheMisses.WithLabelValues("search").Inc()

	result, err := s.catalog.Search(ctx, term, page, perPage)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, result.Media)
	return result, nil
}

// Detail returns a single title by ID, cached under the longer detail TTL.
func (s *CatalogService) Detail(ctx context.Context, id int) (*domain.AnimeMedia, error) {
	if item, ok := s.cache.GetDetail(id); ok {
		metrics.ListingCacheHits.WithLabelValues("detail").Inc()
		s.logger.Debug(ctx, "Detail cache hit", "id", id)
		return item, nil
	}
	metrics.ListingCacheMisses.WithLabelValues("detail").Inc()

	item, err := s.catalog.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetDetail(id, item)
	return item, nil
}

// synthesizePage rebuilds the upstream page envelope around cached items.
// The cache stores items only, so pagination is reconstructed: a full page
// is assumed to have a successor.
func synthesizePage(items []domain.AnimeMedia, page, perPage int) *domain.CatalogPage {
	return &domain.CatalogPage{
		Media: items,
		PageInfo: domain.PageInfo{
			CurrentPage: page,
			HasNextPage: len(items) == perPage,
		},
	}
}
