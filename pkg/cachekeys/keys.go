// Package cachekeys centralizes key construction for the listing cache and
// the Redis-backed stores so formats stay consistent across writers and readers.
package cachekeys

import (
	"fmt"

	"github.com/aniview/aniview/pkg/crypto"
)

// ListingKey generates the cache key for one paginated catalog view.
func ListingKey(resource string, page, perPage int) string {
	return fmt.Sprintf("%s-%d-%d", resource, page, perPage)
}

// SearchKey generates the cache key for a paginated search result view.
func SearchKey(term string, page, perPage int) string {
	return fmt.Sprintf("search-%s-%d-%d", term, page, perPage)
}

// ReviewsKey generates the Redis hash key holding all reviews for one anime.
func ReviewsKey(animeID int) string {
	return fmt.Sprintf("reviews:%d", animeID)
}

// WatchlistKey generates the Redis hash key holding one user's watchlist.
func WatchlistKey(userID string) string {
	return fmt.Sprintf("watchlist:%s", userID)
}

// IdempotencyKey generates the Redis key recording an applied mutation.
// The client-generated action ID is hashed so arbitrary client input never
// lands in the keyspace verbatim.
func IdempotencyKey(actionID string) string {
	return fmt.Sprintf("idempotency:%s", crypto.Sha256Hex(actionID))
}

// PushSubscriptionKey generates the Redis key for a stored push subscription,
// keyed by a hash of the subscription endpoint URL.
func PushSubscriptionKey(endpoint string) string {
	return fmt.Sprintf("push_sub:%s", crypto.Sha256Hex(endpoint))
}
