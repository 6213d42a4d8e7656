package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/pkg/cachekeys"
)

// StorageAdapter implements domain.Storage over Redis hashes. Reviews live
// in one hash per anime, watchlist entries in one hash per user; both
// surfaces are plain keyed upsert/delete, which is all this subsystem
// requires of its relational collaborator.
type StorageAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewStorageAdapter creates a new instance of StorageAdapter.
func NewStorageAdapter(redisClient *redis.Client, logger domain.Logger) *StorageAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewStorageAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewStorageAdapter")
	}
	return &StorageAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// AddReview stores a review under its anime's hash, keyed by review ID.
func (a *StorageAdapter) AddReview(ctx context.Context, review *domain.Review) error {
	payload, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal review %s: %w", review.ID, err)
	}

	key := cachekeys.ReviewsKey(review.AnimeID)
	if err := a.redisClient.HSet(ctx, key, review.ID, payload).Err(); err != nil {
		a.logger.Error(ctx, "Failed to store review", "key", key, "review_id", review.ID, "error", err.Error())
		return fmt.Errorf("redis HSET for review key '%s' failed: %w", key, err)
	}

	a.logger.Debug(ctx, "Stored review", "key", key, "review_id", review.ID)
	return nil
}

// ReviewsForAnime returns all reviews stored for one anime.
func (a *StorageAdapter) ReviewsForAnime(ctx context.Context, animeID int) ([]domain.Review, error) {
	key := cachekeys.ReviewsKey(animeID)
	values, err := a.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to read reviews", "key", key, "error", err.Error())
		return nil, fmt.Errorf("redis HGETALL for review key '%s' failed: %w", key, err)
	}

	reviews := make([]domain.Review, 0, len(values))
	for field, raw := range values {
		var review domain.Review
		if err := json.Unmarshal([]byte(raw), &review); err != nil {
			a.logger.Warn(ctx, "Skipping undecodable review entry", "key", key, "field", field, "error", err.Error())
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// UpsertWatchlistEntry stores an entry under the user's hash, keyed by
// anime ID; re-adding an already-listed anime simply overwrites it.
func (a *StorageAdapter) UpsertWatchlistEntry(ctx context.Context, entry *domain.WatchlistEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal watchlist entry for anime %d: %w", entry.AnimeID, err)
	}

	key := cachekeys.WatchlistKey(entry.UserID)
	field := strconv.Itoa(entry.AnimeID)
	if err := a.redisClient.HSet(ctx, key, field, payload).Err(); err != nil {
		a.logger.Error(ctx, "Failed to upsert watchlist entry", "key", key, "anime_id", entry.AnimeID, "error", err.Error())
		return fmt.Errorf("redis HSET for watchlist key '%s' failed: %w", key, err)
	}

	a.logger.Debug(ctx, "Upserted watchlist entry", "key", key, "anime_id", entry.AnimeID)
	return nil
}

// DeleteWatchlistEntry removes one anime from the user's watchlist.
// Deleting an absent entry is not an error.
func (a *StorageAdapter) DeleteWatchlistEntry(ctx context.Context, userID string, animeID int) error {
	key := cachekeys.WatchlistKey(userID)
	field := strconv.Itoa(animeID)
	if err := a.redisClient.HDel(ctx, key, field).Err(); err != nil {
		a.logger.Error(ctx, "Failed to delete watchlist entry", "key", key, "anime_id", animeID, "error", err.Error())
		return fmt.Errorf("redis HDEL for watchlist key '%s' failed: %w", key, err)
	}
	return nil
}

// Watchlist returns all entries on one user's watchlist.
func (a *StorageAdapter) Watchlist(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	key := cachekeys.WatchlistKey(userID)
	values, err := a.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to read watchlist", "key", key, "error", err.Error())
		return nil, fmt.Errorf("redis HGETALL for watchlist key '%s' failed: %w", key, err)
	}

	entries := make([]domain.WatchlistEntry, 0, len(values))
	for field, raw := range values {
		var entry domain.WatchlistEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			a.logger.Warn(ctx, "Skipping undecodable watchlist entry", "key", key, "field", field, "error", err.Error())
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
