package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/pkg/cachekeys"
)

// IdempotencyAdapter implements domain.IdempotencyStore using SETNX.
// Offline-action replays carry a client-generated ID; the first replay
// claims the key and every later one observes it and becomes a no-op, so a
// successful replay whose response was lost to the client is never applied
// twice.
type IdempotencyAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewIdempotencyAdapter creates a new instance of IdempotencyAdapter.
func NewIdempotencyAdapter(redisClient *redis.Client, logger domain.Logger) *IdempotencyAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewIdempotencyAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewIdempotencyAdapter")
	}
	return &IdempotencyAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// MarkApplied records actionID and reports whether this is its first
// appearance within the retention window.
func (a *IdempotencyAdapter) MarkApplied(ctx context.Context, actionID string, ttl time.Duration) (bool, error) {
	key := cachekeys.IdempotencyKey(actionID)
	first, err := a.redisClient.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to record idempotency key", "key", key, "error", err.Error())
		return false, fmt.Errorf("redis SETNX for idempotency key '%s' failed: %w", key, err)
	}
	if !first {
		a.logger.Info(ctx, "Duplicate mutation suppressed by idempotency key", "key", key)
	}
	return first, nil
}

// Release deletes actionID's key so the client's next replay is treated as
// the first appearance again. Called when a mutation fails after the key
// was claimed.
func (a *IdempotencyAdapter) Release(ctx context.Context, actionID string) error {
	key := cachekeys.IdempotencyKey(actionID)
	if err := a.redisClient.Del(ctx, key).Err(); err != nil {
		a.logger.Error(ctx, "Failed to release idempotency key", "key", key, "error", err.Error())
		return fmt.Errorf("redis DEL for idempotency key '%s' failed: %w", key, err)
	}
	return nil
}
