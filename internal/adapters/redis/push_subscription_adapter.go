package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/pkg/cachekeys"
)

// PushSubscriptionAdapter implements domain.PushSubscriptionStore, keyed by
// a hash of the subscription endpoint URL.
type PushSubscriptionAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewPushSubscriptionAdapter creates a new instance of PushSubscriptionAdapter.
func NewPushSubscriptionAdapter(redisClient *redis.Client, logger domain.Logger) *PushSubscriptionAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewPushSubscriptionAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewPushSubscriptionAdapter")
	}
	return &PushSubscriptionAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Save stores or replaces a push subscription.
func (a *PushSubscriptionAdapter) Save(ctx context.Context, sub *domain.PushSubscription) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal push subscription: %w", err)
	}

	key := cachekeys.PushSubscriptionKey(sub.Endpoint)
	if err := a.redisClient.Set(ctx, key, payload, 0).Err(); err != nil {
		a.logger.Error(ctx, "Failed to store push subscription", "key", key, "error", err.Error())
		return fmt.Errorf("redis SET for push subscription key '%s' failed: %w", key, err)
	}
	a.logger.Debug(ctx, "Stored push subscription", "key", key)
	return nil
}

// Remove deletes a push subscription. Removing an absent one is not an error.
func (a *PushSubscriptionAdapter) Remove(ctx context.Context, endpoint string) error {
	key := cachekeys.PushSubscriptionKey(endpoint)
	if err := a.redisClient.Del(ctx, key).Err(); err != nil {
		a.logger.Error(ctx, "Failed to remove push subscription", "key", key, "error", err.Error())
		return fmt.Errorf("redis DEL for push subscription key '%s' failed: %w", key, err)
	}
	return nil
}
