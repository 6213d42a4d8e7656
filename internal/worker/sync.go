package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aniview/aniview/internal/adapters/metrics"
)

// SyncTag is the closed set of sync signals the platform can deliver.
type SyncTag int

const (
	// SyncBackground fires when connectivity returns after a registered
	// sync request: drain the offline-action queues, then refresh listings.
	SyncBackground SyncTag = iota
	// SyncAnimeUpdates fires on the platform's periodic schedule: refresh
	// listings only, no queue drain.
	SyncAnimeUpdates
)

var syncTagNames = map[SyncTag]string{
	SyncBackground:   "background-sync",
	SyncAnimeUpdates: "anime-updates",
}

func (t SyncTag) String() string {
	if name, ok := syncTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("sync(%d)", int(t))
}

// criticalListingPaths mirrors the listing views the server-side scheduler
// keeps warm. The client refreshes them too because an intermittently
// connected page may go long stretches without round-tripping to the
// server's own refresh.
var criticalListingPaths = []string{
	"/api/anime/trending?page=1&perPage=50",
	"/api/anime/airing?page=1&perPage=50",
	"/api/anime/trending?page=1&perPage=25",
	"/api/anime/airing?page=1&perPage=25",
}

// handleSync runs one sync pass for the given tag. Unlike the server
// scheduler's log-and-continue policy, failures here are re-thrown after
// the pass completes: the platform owns retry-with-backoff for sync events.
func (w *Worker) handleSync(ctx context.Context, tag SyncTag) error {
	switch tag {
	case SyncBackground:
		var firstErr error
		record := func(err error) {
			if firstErr == nil {
				firstErr = err
			}
		}

		// Reviews fully drained before watchlist.
		for _, kind := range []ActionKind{ActionReview, ActionWatchlist} {
			if err := w.drainQueue(ctx, kind); err != nil {
				record(err)
			}
		}
		if err := w.refreshCriticalListings(ctx); err != nil {
			record(err)
		}

		// The completion notice is withheld on failure: the pass will be
		// retried by the platform and pages must not report a sync that
		// left actions queued as done.
		if firstErr != nil {
			return fmt.Errorf("background sync pass incomplete: %w", firstErr)
		}
		w.pages.Broadcast(Notice{Type: NoticeBackgroundSyncComplete, Timestamp: w.now().UnixMilli()})
		return nil

	case SyncAnimeUpdates:
		if err := w.refreshCriticalListings(ctx); err != nil {
			return fmt.Errorf("periodic listing refresh incomplete: %w", err)
		}
		w.pages.Broadcast(Notice{Type: NoticeAnimeDataUpdated, Timestamp: w.now().UnixMilli()})
		return nil
	}
	return fmt.Errorf("unknown sync tag %v", tag)
}

// drainQueue replays one kind's queued actions against the live network.
// An action is removed if and only if its replay returns success; failures
// leave it queued for the next sync event. The pass iterates a snapshot,
// so actions queued mid-drain wait for the next event.
func (w *Worker) drainQueue(ctx context.Context, kind ActionKind) error {
	actions, err := w.queue.List(kind)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return nil
	}
	w.logger.Info(ctx, "Draining offline action queue", "kind", string(kind), "pending", len(actions))

	var firstErr error
	for _, action := range actions {
		if err := w.replayAction(ctx, action); err != nil {
			metrics.OfflineActionsReplayed.WithLabelValues(string(kind), "failure").Inc()
			w.logger.Warn(ctx, "Offline action replay failed, action stays queued", "kind", string(kind), "action_id", action.ID, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		metrics.OfflineActionsReplayed.WithLabelValues(string(kind), "success").Inc()
		if err := w.queue.Remove(kind, action.ID); err != nil {
			w.logger.Error(ctx, "Failed to remove replayed action from queue", "action_id", action.ID, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// replayAction issues the network write for one queued action, carrying
// the action's client-generated ID as the idempotency key so a replay
// whose response was lost is never applied twice server-side.
func (w *Worker) replayAction(ctx context.Context, action OfflineAction) error {
	req, err := replayRequest(action)
	if err != nil {
		return err
	}
	req.Header.Set("X-Idempotency-Key", action.ID)

	resp, err := w.fetcher.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return fmt.Errorf("replay of %s action %s returned status %d", string(action.Kind), action.ID, resp.Status)
	}
	return nil
}

// replayRequest maps an action to its write endpoint. Watchlist actions
// record an intent ("add" or "remove") selecting the method.
func replayRequest(action OfflineAction) (*FetchRequest, error) {
	switch action.Kind {
	case ActionReview:
		return &FetchRequest{
			Method: http.MethodPost,
			URL:    mustParseURL("/api/reviews"),
			Header: jsonHeader(),
			Body:   action.Payload,
		}, nil

	case ActionWatchlist:
		var payload struct {
			UserID  string `json:"userId"`
			AnimeID int    `json:"animeId"`
			Action  string `json:"action"`
		}
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode watchlist action %s: %w", action.ID, err)
		}
		if payload.Action == "remove" {
			return &FetchRequest{
				Method: http.MethodDelete,
				URL:    mustParseURL(fmt.Sprintf("/api/watchlist/%s/%d", payload.UserID, payload.AnimeID)),
				Header: jsonHeader(),
			}, nil
		}
		return &FetchRequest{
			Method: http.MethodPost,
			URL:    mustParseURL("/api/watchlist"),
			Header: jsonHeader(),
			Body:   action.Payload,
		}, nil
	}
	return nil, fmt.Errorf("unknown action kind %q", string(action.Kind))
}

// refreshCriticalListings fetches the critical listing endpoints and
// stores fresh 2xx responses into the api cache. Individual failures are
// collected rather than aborting the loop.
func (w *Worker) refreshCriticalListings(ctx context.Context) error {
	var firstErr error
	for _, path := range criticalListingPaths {
		u, err := url.Parse(path)
		if err != nil {
			continue
		}
		resp, err := w.fetcher.Do(ctx, &FetchRequest{Method: http.MethodGet, URL: u})
		if err != nil {
			w.logger.Warn(ctx, "Critical listing refresh failed", "path", path, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if resp.Status < 200 || resp.Status >= 300 {
			w.logger.Warn(ctx, "Critical listing refresh returned non-success", "path", path, "status", resp.Status)
			if firstErr == nil {
				firstErr = fmt.Errorf("refresh %s returned status %d", path, resp.Status)
			}
			continue
		}
		if err := w.api.Put(u.RequestURI(), resp); err != nil {
			w.logger.Warn(ctx, "Failed to store refreshed listing", "path", path, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("invalid internal URL %q: %v", raw, err))
	}
	return u
}
