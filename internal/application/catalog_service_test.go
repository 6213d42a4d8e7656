package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniview/aniview/internal/domain"
)

func newTestCatalogService(t *testing.T) (*CatalogService, *ResponseCache, *fakeCatalog) {
	t.Helper()
	cache := NewResponseCache(testConfigProvider())
	catalog := newFakeCatalog()
	service := NewCatalogService(nopLogger{}, cache, catalog)
	return service, cache, catalog
}

func TestListingSecondReadServedFromCache(t *testing.T) {
	service, _, catalog := newTestCatalogService(t)
	ctx := context.Background()
	q := domain.ListingQuery{Kind: domain.ListingTrending, Page: 1, PerPage: 20}

	first, err := service.Listing(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 1, catalog.callsFor("trending-1-20"))

	second, err := service.Listing(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.callsFor("trending-1-20"), "cache hit must not reach upstream")
	assert.Equal(t, first.Media, second.Media)
}

func TestListingCacheHitSynthesizesPagination(t *testing.T) {
	service, cache, _ := newTestCatalogService(t)
	ctx := context.Background()

	// Full page of cached items: a successor page is assumed.
	cache.Set("popular-2-3", makeMedia(3))
	page, err := service.Listing(ctx, domain.ListingQuery{Kind: domain.ListingPopular, Page: 2, PerPage: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, page.PageInfo.CurrentPage)
	assert.True(t, page.PageInfo.HasNextPage)

	// Short page: no successor.
	cache.Set("popular-3-10", makeMedia(4))
	page, err = service.Listing(ctx, domain.ListingQuery{Kind: domain.ListingPopular, Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, page.PageInfo.CurrentPage)
	assert.False(t, page.PageInfo.HasNextPage)
}

func TestListingUpstreamErrorNotCached(t *testing.T) {
	service, cache, catalog := newTestCatalogService(t)
	ctx := context.Background()
	catalog.failKinds[domain.ListingAiring] = true
	q := domain.ListingQuery{Kind: domain.ListingAiring, Page: 1, PerPage: 20}

	_, err := service.Listing(ctx, q)
	require.Error(t, err)

	_, ok := cache.Get("airing-1-20")
	assert.False(t, ok, "a failed fetch must not leave a cache entry")

	// The next read tries upstream again instead of serving a phantom hit.
	_, err = service.Listing(ctx, q)
	require.Error(t, err)
	assert.Equal(t, 2, catalog.callsFor("airing-1-20"))
}

func TestSearchRejectsShortTerms(t *testing.T) {
	service, _, catalog := newTestCatalogService(t)
	ctx := context.Background()

	for _, term := range []string{"", "a", " "} {
		_, err := service.Search(ctx, term, 1, 20)
		assert.ErrorIs(t, err, ErrSearchTermTooShort, "term %q", term)
	}
	assert.Equal(t, 0, catalog.searchCalls, "rejected terms must not reach upstream")

	// Two runes is the minimum, bytes do not matter.
	_, err := service.Search(ctx, "ワン", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.searchCalls)
}

func TestSearchSecondReadServedFromCache(t *testing.T) {
	service, _, catalog := newTestCatalogService(t)
	ctx := context.Background()

	_, err := service.Search(ctx, "naruto", 1, 20)
	require.NoError(t, err)
	_, err = service.Search(ctx, "naruto", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.searchCalls)

	// A different page is a different key.
	_, err = service.Search(ctx, "naruto", 2, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.searchCalls)
}

func TestDetailSecondReadServedFromCache(t *testing.T) {
	service, _, catalog := newTestCatalogService(t)
	ctx := context.Background()

	first, err := service.Detail(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, 1, catalog.detailCalls)

	second, err := service.Detail(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.detailCalls)
	assert.Equal(t, first, second)
}

func TestDetailUpstreamErrorPropagates(t *testing.T) {
	service, _, catalog := newTestCatalogService(t)
	catalog.detailErr = errors.New("upstream timeout")

	_, err := service.Detail(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, 1, catalog.detailCalls)
}
