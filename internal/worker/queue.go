package worker

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aniview/aniview/internal/domain"
)

// ActionKind is the closed set of offline-queueable writes.
type ActionKind string

const (
	ActionReview    ActionKind = "REVIEW"
	ActionWatchlist ActionKind = "WATCHLIST"
)

// queueKey returns the durable key holding the serialized list for a kind.
func (k ActionKind) queueKey() (string, error) {
	switch k {
	case ActionReview:
		return "pendingReviews", nil
	case ActionWatchlist:
		return "pendingWatchlist", nil
	}
	return "", fmt.Errorf("unknown action kind %q", string(k))
}

// OfflineAction is one queued write captured while offline. The ID is
// client-generated and travels with the replay as its idempotency key.
type OfflineAction struct {
	ID       string          `json:"id"`
	Kind     ActionKind      `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queuedAt"`
}

// ActionQueue persists offline actions as serialized lists inside the
// version-independent storage cache, one list per kind. An action leaves
// its list only when its replay succeeds.
type ActionQueue struct {
	logger  domain.Logger
	storage *NamedCache
	mu      sync.Mutex
}

// NewActionQueue creates the queue over the storage blob cache.
func NewActionQueue(logger domain.Logger, storage *NamedCache) *ActionQueue {
	return &ActionQueue{
		logger:  logger,
		storage: storage,
	}
}

func (q *ActionQueue) load(kind ActionKind) ([]OfflineAction, string, error) {
	key, err := kind.queueKey()
	if err != nil {
		return nil, "", err
	}

	resp, ok, err := q.storage.Match(key)
	if err != nil {
		return nil, key, fmt.Errorf("read action queue %s: %w", key, err)
	}
	if !ok {
		return nil, key, nil
	}

	var actions []OfflineAction
	if err := json.Unmarshal(resp.Body, &actions); err != nil {
		return nil, key, fmt.Errorf("decode action queue %s: %w", key, err)
	}
	return actions, key, nil
}

func (q *ActionQueue) store(key string, actions []OfflineAction) error {
	body, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encode action queue %s: %w", key, err)
	}
	return q.storage.Put(key, &CachedResponse{
		Status:   200,
		Body:     body,
		StoredAt: time.Now().UTC(),
	})
}

// Append adds an action to the end of its kind's list.
func (q *ActionQueue) Append(action OfflineAction) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, key, err := q.load(action.Kind)
	if err != nil {
		return err
	}
	return q.store(key, append(actions, action))
}

// List returns a snapshot of the queued actions of one kind. Actions
// appended after the snapshot is taken are not part of it; a drain pass
// iterates a stable view.
func (q *ActionQueue) List(kind ActionKind) ([]OfflineAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, _, err := q.load(kind)
	return actions, err
}

// Remove deletes the action with the given ID from its kind's list,
// leaving every other action untouched. Removing an absent ID is a no-op.
func (q *ActionQueue) Remove(kind ActionKind, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions, key, err := q.load(kind)
	if err != nil {
		return err
	}

	kept := actions[:0]
	for _, a := range actions {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	return q.store(key, kept)
}
