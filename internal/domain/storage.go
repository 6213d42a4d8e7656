package domain

import (
	"context"
	"time"
)

// Review is one user review of an anime.
type Review struct {
	ID        string    `json:"id"`
	AnimeID   int       `json:"animeId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	Season    string    `json:"season,omitempty"`
	Episode   int       `json:"episode,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// WatchlistEntry is one anime on a user's watchlist.
type WatchlistEntry struct {
	UserID  string    `json:"userId"`
	AnimeID int       `json:"animeId"`
	AddedAt time.Time `json:"addedAt"`
}

// Storage is the relational collaborator, reduced to the keyed
// upsert/delete surface this subsystem needs. The storage engine itself is
// out of scope.
type Storage interface {
	AddReview(ctx context.Context, review *Review) error
	ReviewsForAnime(ctx context.Context, animeID int) ([]Review, error)

	UpsertWatchlistEntry(ctx context.Context, entry *WatchlistEntry) error
	DeleteWatchlistEntry(ctx context.Context, userID string, animeID int) error
	Watchlist(ctx context.Context, userID string) ([]WatchlistEntry, error)
}

// IdempotencyStore records mutation IDs so that a replayed offline action
// whose first response was lost on the client is applied at most once.
type IdempotencyStore interface {
	// MarkApplied records the ID and returns true if this is the first
	// time it has been seen within the retention window.
	MarkApplied(ctx context.Context, actionID string, ttl time.Duration) (bool, error)

	// Release forgets a recorded ID. Callers claim the ID before the
	// mutation and must release it when the mutation fails, otherwise the
	// client's retry would be answered as a duplicate no-op and the action
	// would never be applied.
	Release(ctx context.Context, actionID string) error
}

// PushSubscription is a stored browser push subscription.
type PushSubscription struct {
	Endpoint string            `json:"endpoint"`
	Keys     map[string]string `json:"keys,omitempty"`
}

// PushSubscriptionStore persists push subscriptions keyed by endpoint.
type PushSubscriptionStore interface {
	Save(ctx context.Context, sub *PushSubscription) error
	Remove(ctx context.Context, endpoint string) error
}
