package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/adapters/metrics"
	"github.com/aniview/aniview/internal/domain"
)

const (
	staticCacheSuffix = "-static"
	apiCacheSuffix    = "-api"
	imageCacheSuffix  = "-images"

	// storageCacheName is version-independent so queued offline actions
	// survive a worker upgrade's activation purge.
	storageCacheName = "aniview-storage"

	offlinePagePath = "/offline.html"

	// adHocAnimeDataKey is where CACHE_ANIME_DATA payloads land, so the
	// network-first strategy finds them on the next trending request.
	adHocAnimeDataKey = "/api/anime/trending"
)

// precacheManifest is the fixed set of assets stored during install so
// navigation fallback works from the first offline moment.
var precacheManifest = []string{
	"/",
	"/manifest.json",
	offlinePagePath,
	"/icons/icon-192.png",
	"/icons/icon-512.png",
}

type eventKind int

const (
	eventInstall eventKind = iota
	eventActivate
	eventSync
	eventMessage
)

type event struct {
	kind eventKind
	tag  SyncTag
	msg  *PageMessage
	done chan error
}

// Worker is the offline caching actor. Lifecycle, sync, and page-message
// events are serialized through its inbox; fetch interception runs
// concurrently because each named cache carries its own lock and fetch
// handling never touches actor-only state.
type Worker struct {
	logger    domain.Logger
	version   string
	caches    *CacheStorage
	static    *NamedCache
	api       *NamedCache
	images    *NamedCache
	storage   *NamedCache
	queue     *ActionQueue
	fetcher   Fetcher
	notifier  Notifier
	pages     PageClients
	registrar SyncRegistrar
	inbox     chan event
	now       func() time.Time
}

// New creates the worker and opens its named caches. The version string
// prefixes every versioned cache name; activation purges caches that do
// not carry it.
func New(
	logger domain.Logger,
	cfgProvider config.Provider,
	fs afero.Fs,
	fetcher Fetcher,
	notifier Notifier,
	pages PageClients,
	registrar SyncRegistrar,
) (*Worker, error) {
	workerCfg := cfgProvider.Get().Worker

	version := workerCfg.CacheVersion
	if version == "" {
		version = "aniview-v3"
	}
	cacheDir := workerCfg.CacheDir
	if cacheDir == "" {
		cacheDir = "worker-cache"
	}

	caches := NewCacheStorage(fs, cacheDir)

	static, err := caches.Open(version + staticCacheSuffix)
	if err != nil {
		return nil, err
	}
	api, err := caches.Open(version + apiCacheSuffix)
	if err != nil {
		return nil, err
	}
	images, err := caches.Open(version + imageCacheSuffix)
	if err != nil {
		return nil, err
	}
	storage, err := caches.Open(storageCacheName)
	if err != nil {
		return nil, err
	}

	return &Worker{
		logger:    logger,
		version:   version,
		caches:    caches,
		static:    static,
		api:       api,
		images:    images,
		storage:   storage,
		queue:     NewActionQueue(logger, storage),
		fetcher:   fetcher,
		notifier:  notifier,
		pages:     pages,
		registrar: registrar,
		inbox:     make(chan event, 16),
		now:       time.Now,
	}, nil
}

// Queue exposes the offline-action queue for introspection and tests.
func (w *Worker) Queue() *ActionQueue {
	return w.queue
}

// Run is the actor loop. It blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info(ctx, "Offline worker started", "version", w.version)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Offline worker stopping")
			return
		case evt := <-w.inbox:
			err := w.handle(ctx, evt)
			if evt.done != nil {
				evt.done <- err
			}
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, evt event) error {
	evt.done = make(chan error, 1)
	select {
	case w.inbox <- evt:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-evt.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Install pre-populates the static cache with the fixed asset manifest.
// The worker takes effect immediately after install; there is no waiting
// phase between worker versions.
func (w *Worker) Install(ctx context.Context) error {
	return w.dispatch(ctx, event{kind: eventInstall})
}

// Activate purges named caches from other versions and claims open pages.
func (w *Worker) Activate(ctx context.Context) error {
	return w.dispatch(ctx, event{kind: eventActivate})
}

// Sync delivers a sync event with the given tag.
func (w *Worker) Sync(ctx context.Context, tag SyncTag) error {
	return w.dispatch(ctx, event{kind: eventSync, tag: tag})
}

// Message delivers a page message into the worker's inbox.
func (w *Worker) Message(ctx context.Context, msg *PageMessage) error {
	return w.dispatch(ctx, event{kind: eventMessage, msg: msg})
}

func (w *Worker) handle(ctx context.Context, evt event) error {
	switch evt.kind {
	case eventInstall:
		return w.handleInstall(ctx)
	case eventActivate:
		return w.handleActivate(ctx)
	case eventSync:
		return w.handleSync(ctx, evt.tag)
	case eventMessage:
		return w.handleMessage(ctx, evt.msg)
	}
	return fmt.Errorf("unknown worker event kind %d", evt.kind)
}

func (w *Worker) handleInstall(ctx context.Context) error {
	w.logger.Info(ctx, "Installing offline worker", "version", w.version, "manifest_size", len(precacheManifest))

	for _, path := range precacheManifest {
		req := &FetchRequest{Method: "GET", URL: mustParseURL(path)}
		resp, err := w.fetcher.Do(ctx, req)
		if err != nil {
			return fmt.Errorf("precache %s: %w", path, err)
		}
		if resp.Status < 200 || resp.Status >= 300 {
			return fmt.Errorf("precache %s: unexpected status %d", path, resp.Status)
		}
		if err := w.static.Put(path, resp); err != nil {
			return fmt.Errorf("precache %s: %w", path, err)
		}
	}

	w.pages.Broadcast(Notice{Type: NoticeUpdateAvailable, Timestamp: w.now().UnixMilli()})
	w.logger.Info(ctx, "Offline worker installed", "version", w.version)
	return nil
}

func (w *Worker) handleActivate(ctx context.Context) error {
	names, err := w.caches.Names()
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}

	for _, name := range names {
		if name == storageCacheName || strings.HasPrefix(name, w.version) {
			continue
		}
		w.logger.Info(ctx, "Purging stale named cache", "cache", name, "current_version", w.version)
		if err := w.caches.Delete(name); err != nil {
			w.logger.Error(ctx, "Failed to purge stale cache", "cache", name, "error", err.Error())
		}
	}

	w.pages.Claim()
	w.logger.Info(ctx, "Offline worker activated", "version", w.version)
	return nil
}

// handleMessage processes one page message. Malformed messages are logged
// and tolerated; the worker must never crash on page input.
func (w *Worker) handleMessage(ctx context.Context, msg *PageMessage) error {
	if msg == nil {
		return nil
	}

	switch msg.Type {
	case MessageSkipWaiting:
		w.logger.Info(ctx, "Page requested immediate worker takeover")
		return w.handleActivate(ctx)

	case MessageCacheAnimeData:
		if len(msg.Data) == 0 {
			w.logger.Warn(ctx, "CACHE_ANIME_DATA message without data, ignoring")
			return nil
		}
		resp := &CachedResponse{Status: 200, Header: jsonHeader(), Body: msg.Data, StoredAt: w.now().UTC()}
		if err := w.api.Put(adHocAnimeDataKey, resp); err != nil {
			return fmt.Errorf("store ad-hoc anime data: %w", err)
		}
		return nil

	case MessageNotificationClick:
		var click struct {
			Action string `json:"action"`
			URL    string `json:"url"`
		}
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &click); err != nil {
				w.logger.Warn(ctx, "Malformed NOTIFICATION_CLICK payload, treating as default click", "error", err.Error())
			}
		}
		return w.HandleNotificationClick(ctx, click.Action, click.URL)

	case MessageStoreOfflineAction:
		if msg.Action == nil {
			w.logger.Warn(ctx, "STORE_OFFLINE_ACTION message without action, ignoring")
			return nil
		}
		action := OfflineAction{
			ID:       uuid.NewString(),
			Kind:     msg.Action.Type,
			Payload:  msg.Action.Data,
			QueuedAt: w.now().UTC(),
		}
		if err := w.queue.Append(action); err != nil {
			w.logger.Warn(ctx, "Failed to queue offline action", "kind", string(action.Kind), "error", err.Error())
			return nil
		}
		metrics.OfflineActionsQueued.WithLabelValues(string(action.Kind)).Inc()

		if err := w.registrar.Register(SyncBackground); err != nil {
			// The action stays queued; a later sync event still drains it.
			w.logger.Warn(ctx, "Failed to register background sync", "error", err.Error())
		}
		w.pages.Broadcast(Notice{Type: NoticeOfflineActionStored, ActionID: action.ID, Timestamp: w.now().UnixMilli()})
		w.logger.Info(ctx, "Offline action queued", "kind", string(action.Kind), "action_id", action.ID)
		return nil
	}

	w.logger.Warn(ctx, "Unrecognized page message type, ignoring", "type", msg.Type)
	return nil
}

// HandleFetch applies exactly one strategy to an intercepted request.
// Unlike lifecycle events, fetches do not pass through the inbox: distinct
// requests are handled concurrently with no mutual ordering.
func (w *Worker) HandleFetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	class := Classify(req)
	result, err := w.applyStrategy(ctx, class, req)

	outcome := "error"
	if result != nil {
		outcome = result.Tag.String()
	}
	metrics.WorkerFetches.WithLabelValues(class.String(), outcome).Inc()
	return result, err
}

func (w *Worker) applyStrategy(ctx context.Context, class RequestClass, req *FetchRequest) (*FetchResult, error) {
	switch class {
	case ClassPassthrough:
		resp, err := w.fetcher.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		return &FetchResult{Tag: ResultOk, Response: resp}, nil

	case ClassAPI:
		return w.networkFirstAPI(ctx, req)

	case ClassImage:
		return w.cacheFirst(ctx, req, w.images)

	case ClassNavigation:
		return w.navigate(ctx, req)

	case ClassStatic:
		return w.cacheFirst(ctx, req, w.static)
	}
	return nil, fmt.Errorf("unknown request class %v", class)
}

// networkFirstAPI tries the network, caching 2xx responses; on network
// failure it falls back to the cached entry, then to a synthesized
// offline payload.
func (w *Worker) networkFirstAPI(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	key := req.URL.RequestURI()

	resp, err := w.fetcher.Do(ctx, req)
	if err == nil {
		if resp.Status >= 200 && resp.Status < 300 {
			if putErr := w.api.Put(key, resp); putErr != nil {
				w.logger.Warn(ctx, "Failed to cache API response", "key", key, "error", putErr.Error())
			}
		}
		return &FetchResult{Tag: ResultOk, Response: resp}, nil
	}

	cached, ok, matchErr := w.api.Match(key)
	if matchErr != nil {
		w.logger.Warn(ctx, "Cache lookup failed during offline fallback", "key", key, "error", matchErr.Error())
	}
	if ok {
		w.logger.Info(ctx, "Serving stale API response from cache", "key", key)
		return &FetchResult{Tag: ResultDegraded, Response: cached, Reason: "network unavailable, served from cache"}, nil
	}

	return &FetchResult{
		Tag:      ResultUnavailable,
		Response: synthesizeOfflineResponse(req.URL.Path, w.now().UTC()),
		Reason:   err.Error(),
	}, nil
}

// cacheFirst serves from cache when present, otherwise fetches and stores.
// A network failure with no cached entry surfaces the error unchanged.
func (w *Worker) cacheFirst(ctx context.Context, req *FetchRequest, cache *NamedCache) (*FetchResult, error) {
	key := req.URL.RequestURI()

	cached, ok, err := cache.Match(key)
	if err != nil {
		w.logger.Warn(ctx, "Cache lookup failed", "key", key, "error", err.Error())
	}
	if ok {
		return &FetchResult{Tag: ResultOk, Response: cached}, nil
	}

	resp, err := w.fetcher.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status >= 200 && resp.Status < 300 {
		if putErr := cache.Put(key, resp); putErr != nil {
			w.logger.Warn(ctx, "Failed to cache response", "key", key, "error", putErr.Error())
		}
	}
	return &FetchResult{Tag: ResultOk, Response: resp}, nil
}

// navigate is network-first with the pre-cached offline page as fallback
// and a minimal inline response as last resort.
func (w *Worker) navigate(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	resp, err := w.fetcher.Do(ctx, req)
	if err == nil {
		return &FetchResult{Tag: ResultOk, Response: resp}, nil
	}

	offline, ok, matchErr := w.static.Match(offlinePagePath)
	if matchErr != nil {
		w.logger.Warn(ctx, "Offline page lookup failed", "error", matchErr.Error())
	}
	if ok {
		return &FetchResult{Tag: ResultDegraded, Response: offline, Reason: "offline page fallback"}, nil
	}

	inline := &CachedResponse{
		Status:   503,
		Body:     []byte("<!DOCTYPE html><html><body><h1>Offline</h1><p>Please check your connection.</p></body></html>"),
		StoredAt: w.now().UTC(),
	}
	return &FetchResult{Tag: ResultUnavailable, Response: inline, Reason: err.Error()}, nil
}
