package domain

// CacheEntryStats describes one live listing cache entry for introspection.
// Age and time-to-expiry are reported in milliseconds, the unit pages
// consuming /api/cache/status expect; an expired-but-unevicted entry has a
// negative ExpiresMs.
type CacheEntryStats struct {
	Key       string `json:"key"`
	AgeMs     int64  `json:"age"`
	ExpiresMs int64  `json:"expires"`
}

// CacheStats is the snapshot returned by ListingCache.Stats. Read-only,
// produced without side effects.
type CacheStats struct {
	ListCacheSize   int               `json:"listCacheSize"`
	DetailCacheSize int               `json:"detailCacheSize"`
	Entries         []CacheEntryStats `json:"entries"`
}

// ListingCache is the server-side response cache over upstream catalog data.
// It is a pure in-memory structure: there are no error conditions, any
// failure belongs to the caller's fetch, not the cache.
type ListingCache interface {
	// Get returns the cached listing for key if it has not expired.
	// An expired entry is evicted on read and reported as absent.
	Get(key string) ([]AnimeMedia, bool)

	// Set stores items under key, unconditionally replacing any previous
	// entry (no merge).
	Set(key string, items []AnimeMedia)

	// GetDetail and SetDetail mirror Get/Set for single-title entries,
	// which live under a longer TTL because detail data changes less
	// often than rankings.
	GetDetail(id int) (*AnimeMedia, bool)
	SetDetail(id int, item *AnimeMedia)

	// Clear empties both maps. Used by forced refresh only; ordinary
	// requests never purge the cache outright.
	Clear()

	// Stats reports cache sizes and per-entry age/TTL remaining.
	Stats() CacheStats
}
