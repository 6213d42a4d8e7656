package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueAction(t *testing.T, fx *workerFixture, kind ActionKind, payload string) OfflineAction {
	t.Helper()
	msg := &PageMessage{
		Type:   MessageStoreOfflineAction,
		Action: &ActionRequest{Type: kind, Data: json.RawMessage(payload)},
	}
	require.NoError(t, fx.worker.Message(context.Background(), msg))

	actions, err := fx.worker.Queue().List(kind)
	require.NoError(t, err)
	require.NotEmpty(t, actions)
	return actions[len(actions)-1]
}

func TestBackgroundSyncReplaysQueuedReview(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()

	queued := queueAction(t, fx, ActionReview, `{"animeId":42,"userId":"u1","rating":8}`)

	require.NoError(t, fx.worker.Sync(ctx, SyncBackground))

	actions, err := fx.worker.Queue().List(ActionReview)
	require.NoError(t, err)
	assert.Empty(t, actions, "a successfully replayed action leaves the queue")

	var replay *recordedRequest
	for _, r := range fx.fetcher.recorded() {
		if r.Method == http.MethodPost && r.URI == "/api/reviews" {
			replay = &r
			break
		}
	}
	require.NotNil(t, replay, "expected the review to be replayed")
	assert.Equal(t, queued.ID, replay.Header.Get("X-Idempotency-Key"))
}

func TestBackgroundSyncReplaysWatchlistByIntent(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()

	queueAction(t, fx, ActionWatchlist, `{"userId":"u1","animeId":42,"action":"add"}`)
	queueAction(t, fx, ActionWatchlist, `{"userId":"u1","animeId":7,"action":"remove"}`)

	require.NoError(t, fx.worker.Sync(ctx, SyncBackground))

	actions, err := fx.worker.Queue().List(ActionWatchlist)
	require.NoError(t, err)
	assert.Empty(t, actions)

	assert.Equal(t, 1, fx.fetcher.countFor(http.MethodPost, "/api/watchlist"))
	assert.Equal(t, 1, fx.fetcher.countFor(http.MethodDelete, "/api/watchlist/u1/7"))
}

func TestBackgroundSyncFailedReplayStaysQueued(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()

	queued := queueAction(t, fx, ActionReview, `{"animeId":42,"rating":8}`)
	fx.fetcher.failPaths["/api/reviews"] = true

	err := fx.worker.Sync(ctx, SyncBackground)
	assert.Error(t, err, "a failed replay is re-thrown so the platform retries")

	actions, listErr := fx.worker.Queue().List(ActionReview)
	require.NoError(t, listErr)
	require.Len(t, actions, 1)
	assert.Equal(t, queued.ID, actions[0].ID)
}

func TestBackgroundSyncNon2xxReplayStaysQueued(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()

	queueAction(t, fx, ActionReview, `{"animeId":42,"rating":8}`)
	fx.fetcher.script(http.MethodPost, "/api/reviews", &CachedResponse{Status: 500})

	err := fx.worker.Sync(ctx, SyncBackground)
	assert.Error(t, err)

	actions, listErr := fx.worker.Queue().List(ActionReview)
	require.NoError(t, listErr)
	assert.Len(t, actions, 1, "a rejected replay must not be dropped")
}

func TestBackgroundSyncPartialFailureDrainsRest(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()

	queueAction(t, fx, ActionReview, `{"animeId":42,"rating":8}`)
	queueAction(t, fx, ActionWatchlist, `{"userId":"u1","animeId":42,"action":"add"}`)
	fx.fetcher.failPaths["/api/reviews"] = true

	err := fx.worker.Sync(ctx, SyncBackground)
	assert.Error(t, err)

	reviews, listErr := fx.worker.Queue().List(ActionReview)
	require.NoError(t, listErr)
	assert.Len(t, reviews, 1, "the failed review stays queued")

	watchlist, listErr := fx.worker.Queue().List(ActionWatchlist)
	require.NoError(t, listErr)
	assert.Empty(t, watchlist, "the watchlist drain proceeds despite the review failure")

	notices := fx.pages.noticesOf(NoticeBackgroundSyncComplete)
	assert.Empty(t, notices, "a failed pass must not announce completion")
}

func TestBackgroundSyncRefreshesListingsAndNotifies(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.worker.Sync(ctx, SyncBackground))

	for _, path := range criticalListingPaths {
		_, ok, err := fx.worker.api.Match(path)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to be refreshed", path)
	}

	notices := fx.pages.noticesOf(NoticeBackgroundSyncComplete)
	assert.Len(t, notices, 1)
}

func TestPeriodicSyncSkipsQueueDrain(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()

	queueAction(t, fx, ActionReview, `{"animeId":42,"rating":8}`)

	require.NoError(t, fx.worker.Sync(ctx, SyncAnimeUpdates))

	actions, err := fx.worker.Queue().List(ActionReview)
	require.NoError(t, err)
	assert.Len(t, actions, 1, "periodic refresh never drains the action queues")

	assert.Equal(t, 0, fx.fetcher.countFor(http.MethodPost, "/api/reviews"))
	notices := fx.pages.noticesOf(NoticeAnimeDataUpdated)
	assert.Len(t, notices, 1)
}

func TestSyncTagNames(t *testing.T) {
	assert.Equal(t, "background-sync", SyncBackground.String())
	assert.Equal(t, "anime-updates", SyncAnimeUpdates.String())
}
