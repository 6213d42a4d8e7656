package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/pkg/cachekeys"
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
		Catalog: config.CatalogConfig{
			ListingTTLSeconds:      300,
			DetailTTLSeconds:       900,
			RefreshIntervalSeconds: 3600,
			RefreshPassDelayMs:     1,
		},
	}}
}

// fakeCatalog is an in-memory CatalogClient recording call counts. Kinds
// listed in failKinds return an error from Listing.
type fakeCatalog struct {
	mu           sync.Mutex
	listingCalls map[string]int
	searchCalls  int
	detailCalls  int
	failKinds    map[domain.ListingKind]bool
	searchErr    error
	detailErr    error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		listingCalls: make(map[string]int),
		failKinds:    make(map[domain.ListingKind]bool),
	}
}

func (f *fakeCatalog) Listing(ctx context.Context, q domain.ListingQuery) (*domain.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := cachekeys.ListingKey(q.Kind.String(), q.Page, q.PerPage)
	f.listingCalls[key]++
	if f.failKinds[q.Kind] {
		return nil, fmt.Errorf("upstream unavailable for %s", q.Kind.String())
	}
	return &domain.CatalogPage{
		Media:    makeMedia(q.PerPage),
		PageInfo: domain.PageInfo{CurrentPage: q.Page, HasNextPage: true},
	}, nil
}

func (f *fakeCatalog) Search(ctx context.Context, term string, page, perPage int) (*domain.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &domain.CatalogPage{
		Media:    makeMedia(2),
		PageInfo: domain.PageInfo{CurrentPage: page, HasNextPage: false},
	}, nil
}

func (f *fakeCatalog) Detail(ctx context.Context, id int) (*domain.AnimeMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return &domain.AnimeMedia{ID: id, Title: domain.AnimeTitle{Romaji: fmt.Sprintf("Title %d", id)}}, nil
}

func (f *fakeCatalog) callsFor(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listingCalls[key]
}

func (f *fakeCatalog) totalListingCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.listingCalls {
		total += n
	}
	return total
}

func makeMedia(n int) []domain.AnimeMedia {
	media := make([]domain.AnimeMedia, n)
	for i := range media {
		media[i] = domain.AnimeMedia{
			ID:    i + 1,
			Title: domain.AnimeTitle{Romaji: fmt.Sprintf("Title %d", i+1)},
		}
	}
	return media
}

// fakeBroadcaster records broadcast messages.
type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []domain.BaseMessage
}

func (b *fakeBroadcaster) Broadcast(msg domain.BaseMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

func (b *fakeBroadcaster) lastType() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return ""
	}
	return b.messages[len(b.messages)-1].Type
}
