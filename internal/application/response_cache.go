package application

import (
	"sync"
	"time"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/domain"
)

const (
	defaultListingTTL = 5 * time.Minute
	defaultDetailTTL  = 15 * time.Minute
)

type listingEntry struct {
	data     []domain.AnimeMedia
	storedAt time.Time
	expires  time.Time
}

type detailEntry struct {
	data     *domain.AnimeMedia
	storedAt time.Time
	expires  time.Time
}

// ResponseCache is the in-process keyed store of listing and detail results.
// It is a performance layer over the upstream catalog, not a source of
// truth; losing it on restart is acceptable.
//
// The maps are guarded by a single mutex: the request handlers and the
// auto-refresh scheduler are the only writers, and no operation holds the
// lock across a network call.
type ResponseCache struct {
	mu         sync.Mutex
	listings   map[string]listingEntry
	details    map[int]detailEntry
	listingTTL time.Duration
	detailTTL  time.Duration
	now        func() time.Time
}

// NewResponseCache creates a ResponseCache with TTLs from configuration.
func NewResponseCache(cfgProvider config.Provider) *ResponseCache {
	catalogCfg := cfgProvider.Get().Catalog

	listingTTL := defaultListingTTL
	if catalogCfg.ListingTTLSeconds > 0 {
		listingTTL = time.Duration(catalogCfg.ListingTTLSeconds) * time.Second
	}
	detailTTL := defaultDetailTTL
	if catalogCfg.DetailTTLSeconds > 0 {
		detailTTL = time.Duration(catalogCfg.DetailTTLSeconds) * time.Second
	}

	return &ResponseCache{
		listings:   make(map[string]listingEntry),
		details:    make(map[int]detailEntry),
		listingTTL: listingTTL,
		detailTTL:  detailTTL,
		now:        time.Now,
	}
}

// Get returns the cached listing for key if it has not expired. An expired
// entry is evicted on read and reported as absent.
func (c *ResponseCache) Get(key string) ([]domain.AnimeMedia, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.listings[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.listings, key)
		return nil, false
	}
	return entry.data, true
}

// Set stores items under key, unconditionally replacing any previous entry.
func (c *ResponseCache) Set(key string, items []domain.AnimeMedia) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.listings[key] = listingEntry{
		data:     items,
		storedAt: now,
		expires:  now.Add(c.listingTTL),
	}
}

// GetDetail returns the cached detail entry for id if it has not expired.
func (c *ResponseCache) GetDetail(id int) (*domain.AnimeMedia, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.details[id]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.details, id)
		return nil, false
	}
	return entry.data, true
}

// SetDetail stores a detail entry under id, replacing any previous entry.
func (c *ResponseCache) SetDetail(id int, item *domain.AnimeMedia) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.details[id] = detailEntry{
		data:     item,
		storedAt: now,
		expires:  now.Add(c.detailTTL),
	}
}

// Clear empties both maps. Only forced refresh uses this.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listings = make(map[string]listingEntry)
	c.details = make(map[int]detailEntry)
}

// Stats reports cache sizes and per-entry age/TTL remaining. Introspection
// only, no side effects: expired entries are reported as-is until a Get
// evicts them.
func (c *ResponseCache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := domain.CacheStats{
		ListCacheSize:   len(c.listings),
		DetailCacheSize: len(c.details),
		Entries:         make([]domain.CacheEntryStats, 0, len(c.listings)),
	}
	for key, entry := range c.listings {
		stats.Entries = append(stats.Entries, domain.CacheEntryStats{
			Key:       key,
			AgeMs:     now.Sub(entry.storedAt).Milliseconds(),
			ExpiresMs: entry.expires.Sub(now).Milliseconds(),
		})
	}
	return stats
}
