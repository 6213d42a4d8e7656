package application

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*ResponseCache, *time.Time) {
	t.Helper()
	cache := NewResponseCache(testConfigProvider())
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }
	return cache, &current
}

func TestResponseCacheHitBeforeExpiry(t *testing.T) {
	cache, _ := newTestCache(t)

	items := makeMedia(3)
	cache.Set("trending-1-50", items)

	got, ok := cache.Get("trending-1-50")
	require.True(t, ok)
	assert.Equal(t, items, got)
}

func TestResponseCacheExpiredEntryEvictedOnRead(t *testing.T) {
	cache, current := newTestCache(t)

	cache.Set("trending-1-50", makeMedia(3))

	*current = current.Add(301 * time.Second)
	_, ok := cache.Get("trending-1-50")
	assert.False(t, ok)

	// The expired entry is gone, not merely hidden.
	assert.Equal(t, 0, cache.Stats().ListCacheSize)
}

func TestResponseCacheEntryLiveAtTTLBoundary(t *testing.T) {
	cache, current := newTestCache(t)

	cache.Set("airing-1-25", makeMedia(1))

	*current = current.Add(300 * time.Second)
	_, ok := cache.Get("airing-1-25")
	assert.True(t, ok, "entry at exactly its TTL boundary should still be served")
}

func TestResponseCacheSetReplacesExisting(t *testing.T) {
	cache, current := newTestCache(t)

	cache.Set("trending-1-50", makeMedia(3))

	// A later Set restarts the clock and replaces the payload.
	*current = current.Add(200 * time.Second)
	replacement := makeMedia(5)
	cache.Set("trending-1-50", replacement)

	*current = current.Add(200 * time.Second)
	got, ok := cache.Get("trending-1-50")
	require.True(t, ok)
	assert.Equal(t, replacement, got)
}

func TestResponseCacheDetailOutlivesListing(t *testing.T) {
	cache, current := newTestCache(t)

	cache.Set("trending-1-50", makeMedia(3))
	detail := &makeMedia(1)[0]
	cache.SetDetail(42, detail)

	*current = current.Add(600 * time.Second)

	_, listingOK := cache.Get("trending-1-50")
	assert.False(t, listingOK, "listing entry should expire after its shorter TTL")

	got, detailOK := cache.GetDetail(42)
	require.True(t, detailOK, "detail entry should survive under its longer TTL")
	assert.Equal(t, detail, got)

	*current = current.Add(301 * time.Second)
	_, detailOK = cache.GetDetail(42)
	assert.False(t, detailOK)
}

func TestResponseCacheClearEmptiesBothMaps(t *testing.T) {
	cache, _ := newTestCache(t)

	cache.Set("trending-1-50", makeMedia(3))
	cache.SetDetail(7, &makeMedia(1)[0])

	cache.Clear()

	stats := cache.Stats()
	assert.Equal(t, 0, stats.ListCacheSize)
	assert.Equal(t, 0, stats.DetailCacheSize)
}

func TestResponseCacheStatsHasNoSideEffects(t *testing.T) {
	cache, current := newTestCache(t)

	cache.Set("trending-1-50", makeMedia(3))
	*current = current.Add(400 * time.Second)

	// Stats reports the expired entry as-is; only a Get evicts it.
	stats := cache.Stats()
	require.Equal(t, 1, stats.ListCacheSize)
	require.Len(t, stats.Entries, 1)
	assert.Equal(t, "trending-1-50", stats.Entries[0].Key)
	assert.Equal(t, int64(400_000), stats.Entries[0].AgeMs)
	assert.Negative(t, stats.Entries[0].ExpiresMs)

	_, _ = cache.Get("trending-1-50")
	assert.Equal(t, 0, cache.Stats().ListCacheSize)
}

func TestResponseCacheStatsMarshalInMilliseconds(t *testing.T) {
	cache, current := newTestCache(t)

	cache.Set("trending-1-50", makeMedia(1))
	*current = current.Add(90 * time.Second)

	raw, err := json.Marshal(cache.Stats().Entries[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"trending-1-50","age":90000,"expires":210000}`, string(raw))
}
