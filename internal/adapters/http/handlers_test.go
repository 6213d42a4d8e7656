package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/application"
	"github.com/aniview/aniview/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (l nopLogger) With(fields ...any) domain.Logger                   { return l }

type staticConfigProvider struct {
	cfg *config.Config
}

func (p *staticConfigProvider) Get() *config.Config { return p.cfg }

func testConfigProvider() config.Provider {
	return &staticConfigProvider{cfg: &config.Config{
		Auth: config.AuthConfig{
			AdminAPIKey:           "test-admin-key",
			IdempotencyTTLSeconds: 86400,
		},
		Catalog: config.CatalogConfig{
			ListingTTLSeconds:  300,
			DetailTTLSeconds:   900,
			RefreshPassDelayMs: 1,
		},
	}}
}

type fakeCatalogClient struct {
	mu  sync.Mutex
	err error
}

func (f *fakeCatalogClient) Listing(ctx context.Context, q domain.ListingQuery) (*domain.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CatalogPage{
		Media:    []domain.AnimeMedia{{ID: 1, Title: domain.AnimeTitle{Romaji: "Test Show"}}},
		PageInfo: domain.PageInfo{CurrentPage: q.Page, HasNextPage: true},
	}, nil
}

func (f *fakeCatalogClient) Search(ctx context.Context, term string, page, perPage int) (*domain.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CatalogPage{
		Media:    []domain.AnimeMedia{{ID: 2, Title: domain.AnimeTitle{Romaji: term}}},
		PageInfo: domain.PageInfo{CurrentPage: page},
	}, nil
}

func (f *fakeCatalogClient) Detail(ctx context.Context, id int) (*domain.AnimeMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnimeMedia{ID: id, Title: domain.AnimeTitle{Romaji: "Detail"}}, nil
}

type fakeStorage struct {
	mu             sync.Mutex
	reviews        map[int][]domain.Review
	watchlist      map[string][]domain.WatchlistEntry
	addCalls       int
	failNextAdd    error
	failNextUpsert error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		reviews:   make(map[int][]domain.Review),
		watchlist: make(map[string][]domain.WatchlistEntry),
	}
}

func (s *fakeStorage) AddReview(ctx context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNextAdd; err != nil {
		s.failNextAdd = nil
		return err
	}
	s.addCalls++
	s.reviews[review.AnimeID] = append(s.reviews[review.AnimeID], *review)
	return nil
}

func (s *fakeStorage) ReviewsForAnime(ctx context.Context, animeID int) ([]domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Review(nil), s.reviews[animeID]...), nil
}

func (s *fakeStorage) UpsertWatchlistEntry(ctx context.Context, entry *domain.WatchlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNextUpsert; err != nil {
		s.failNextUpsert = nil
		return err
	}
	s.watchlist[entry.UserID] = append(s.watchlist[entry.UserID], *entry)
	return nil
}

func (s *fakeStorage) DeleteWatchlistEntry(ctx context.Context, userID string, animeID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.watchlist[userID][:0]
	for _, e := range s.watchlist[userID] {
		if e.AnimeID != animeID {
			kept = append(kept, e)
		}
	}
	s.watchlist[userID] = kept
	return nil
}

func (s *fakeStorage) Watchlist(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WatchlistEntry(nil), s.watchlist[userID]...), nil
}

// fakeIdempotency marks each key as seen; the second MarkApplied for a key
// reports a duplicate.
type fakeIdempotency struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{seen: make(map[string]bool)}
}

func (f *fakeIdempotency) MarkApplied(ctx context.Context, actionID string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[actionID] {
		return false, nil
	}
	f.seen[actionID] = true
	return true, nil
}

func (f *fakeIdempotency) Release(ctx context.Context, actionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, actionID)
	return nil
}

func newCatalogMux(t *testing.T, client *fakeCatalogClient) *http.ServeMux {
	t.Helper()
	cache := application.NewResponseCache(testConfigProvider())
	service := application.NewCatalogService(nopLogger{}, cache, client)
	mux := http.NewServeMux()
	NewCatalogHandler(nopLogger{}, service).RegisterRoutes(context.Background(), mux)
	return mux
}

func TestCatalogListingEndpoint(t *testing.T) {
	mux := newCatalogMux(t, &fakeCatalogClient{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anime/trending?page=1&perPage=20", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var envelope pageEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Page)
	require.Len(t, envelope.Data.Page.Media, 1)
	assert.Equal(t, "Test Show", envelope.Data.Page.Media[0].Title.Romaji)
}

func TestCatalogListingUpstreamFailure(t *testing.T) {
	mux := newCatalogMux(t, &fakeCatalogClient{err: fmt.Errorf("upstream down")})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anime/trending", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var errResp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, domain.ErrUpstreamUnavailable, errResp.Code)
}

func TestCatalogSearchRejectsShortTerm(t *testing.T) {
	mux := newCatalogMux(t, &fakeCatalogClient{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anime/search/a", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, domain.ErrBadRequest, errResp.Code)
}

func TestCatalogDetailRejectsBadID(t *testing.T) {
	mux := newCatalogMux(t, &fakeCatalogClient{})

	for _, path := range []string{"/api/anime/abc", "/api/anime/-5", "/api/anime/0"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestCatalogDetailEndpoint(t *testing.T) {
	mux := newCatalogMux(t, &fakeCatalogClient{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anime/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope mediaEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Media)
	assert.Equal(t, 42, envelope.Data.Media.ID)
}

func newReviewMux(t *testing.T) (*http.ServeMux, *fakeStorage, *fakeIdempotency) {
	t.Helper()
	storage := newFakeStorage()
	idem := newFakeIdempotency()
	mux := http.NewServeMux()
	NewReviewHandler(nopLogger{}, testConfigProvider(), storage, idem).RegisterRoutes(context.Background(), mux)
	return mux, storage, idem
}

func TestCreateReviewStoresAndReturns201(t *testing.T) {
	mux, storage, _ := newReviewMux(t)

	body := `{"animeId":42,"userId":"u1","rating":8,"text":"great"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var review domain.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	assert.NotEmpty(t, review.ID)
	assert.Equal(t, 42, review.AnimeID)

	stored, err := storage.ReviewsForAnime(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCreateReviewValidation(t *testing.T) {
	mux, storage, _ := newReviewMux(t)

	cases := []string{
		`{"userId":"u1","rating":8}`,            // missing animeId
		`{"animeId":42,"rating":8}`,             // missing userId
		`{"animeId":42,"userId":"u1","rating":0}`,  // rating too low
		`{"animeId":42,"userId":"u1","rating":11}`, // rating too high
		`not json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
	assert.Equal(t, 0, storage.addCalls)
}

func TestCreateReviewDuplicateReplayIsNoop(t *testing.T) {
	mux, storage, _ := newReviewMux(t)

	body := `{"animeId":42,"userId":"u1","rating":8}`
	first := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewBufferString(body))
	first.Header.Set(idempotencyKeyHeader, "action-abc")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same idempotency key again: success without a second write.
	second := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewBufferString(body))
	second.Header.Set(idempotencyKeyHeader, "action-abc")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, second)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["duplicate"])
	assert.Equal(t, 1, storage.addCalls)
}

func TestCreateReviewRetryAfterWriteFailureIsApplied(t *testing.T) {
	mux, storage, _ := newReviewMux(t)

	body := `{"animeId":42,"userId":"u1","rating":8}`
	storage.failNextAdd = fmt.Errorf("redis down")

	first := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewBufferString(body))
	first.Header.Set(idempotencyKeyHeader, "action-abc")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, first)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The failed write released its key, so the client's retry with the
	// same key must store the review instead of no-opping as a duplicate.
	retry := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewBufferString(body))
	retry.Header.Set(idempotencyKeyHeader, "action-abc")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, retry)
	require.Equal(t, http.StatusCreated, rec.Code)

	stored, err := storage.ReviewsForAnime(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestListReviews(t *testing.T) {
	mux, storage, _ := newReviewMux(t)
	require.NoError(t, storage.AddReview(context.Background(), &domain.Review{ID: "r1", AnimeID: 42, UserID: "u1", Rating: 9}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reviews/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Reviews []domain.Review `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reviews, 1)
	assert.Equal(t, "r1", resp.Reviews[0].ID)
}

func newWatchlistMux(t *testing.T) (*http.ServeMux, *fakeStorage) {
	t.Helper()
	storage := newFakeStorage()
	mux := http.NewServeMux()
	NewWatchlistHandler(nopLogger{}, testConfigProvider(), storage, newFakeIdempotency()).RegisterRoutes(context.Background(), mux)
	return mux, storage
}

func TestWatchlistAddAndRemove(t *testing.T) {
	mux, storage := newWatchlistMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/watchlist", bytes.NewBufferString(`{"userId":"u1","animeId":42}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	entries, err := storage.Watchlist(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/watchlist/u1/42", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	entries, err = storage.Watchlist(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatchlistAddRetryAfterWriteFailureIsApplied(t *testing.T) {
	mux, storage := newWatchlistMux(t)

	body := `{"userId":"u1","animeId":42}`
	storage.failNextUpsert = fmt.Errorf("redis down")

	first := httptest.NewRequest(http.MethodPost, "/api/watchlist", bytes.NewBufferString(body))
	first.Header.Set(idempotencyKeyHeader, "action-xyz")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, first)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	retry := httptest.NewRequest(http.MethodPost, "/api/watchlist", bytes.NewBufferString(body))
	retry.Header.Set(idempotencyKeyHeader, "action-xyz")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, retry)
	require.Equal(t, http.StatusCreated, rec.Code)

	entries, err := storage.Watchlist(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWatchlistRemoveAbsentEntrySucceeds(t *testing.T) {
	mux, _ := newWatchlistMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/watchlist/u1/999", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "removing an absent entry is not an error")
}

func newCacheMux(t *testing.T) *http.ServeMux {
	t.Helper()
	cfgProvider := testConfigProvider()
	cache := application.NewResponseCache(cfgProvider)
	refresher := application.NewAutoRefresh(nopLogger{}, cfgProvider, cache, &fakeCatalogClient{}, nil)
	mux := http.NewServeMux()
	NewCacheHandler(nopLogger{}, cfgProvider, refresher).RegisterRoutes(context.Background(), mux)
	return mux
}

func TestCacheStatusIsPublic(t *testing.T) {
	mux := newCacheMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status application.AutoRefreshStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.IsRunning)
}

func TestCacheRefreshRequiresAdminKey(t *testing.T) {
	mux := newCacheMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cache/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrong := httptest.NewRequest(http.MethodPost, "/api/cache/refresh", nil)
	wrong.Header.Set("X-API-Key", "not-the-key")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, wrong)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	authed := httptest.NewRequest(http.MethodPost, "/api/cache/refresh", nil)
	authed.Header.Set("X-API-Key", "test-admin-key")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, authed)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Cache refreshed successfully", resp["message"])
}
