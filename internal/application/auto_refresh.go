package application

import (
	"context"
	"sync"
	"time"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/adapters/metrics"
	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/pkg/cachekeys"
	"github.com/aniview/aniview/pkg/safego"
)

// criticalQueries is the fixed ordered list of listing views the scheduler
// keeps warm regardless of user traffic: the two most valuable listings in
// their two page-size variants.
var criticalQueries = []domain.ListingQuery{
	{Kind: domain.ListingTrending, Page: 1, PerPage: 50},
	{Kind: domain.ListingAiring, Page: 1, PerPage: 50},
	{Kind: domain.ListingTrending, Page: 1, PerPage: 25},
	{Kind: domain.ListingAiring, Page: 1, PerPage: 25},
}

// AutoRefreshStatus is the snapshot reported by the cache status endpoint.
type AutoRefreshStatus struct {
	IsRunning   bool              `json:"isRunning"`
	HasInterval bool              `json:"hasInterval"`
	CacheStats  domain.CacheStats `json:"cacheStats"`
}

// AutoRefresh proactively repopulates the response cache for the critical
// listing keys on a fixed interval. Failures during a pass are logged and
// never propagated: the scheduler has no synchronous caller, and the next
// tick retries.
type AutoRefresh struct {
	logger      domain.Logger
	cache       domain.ListingCache
	catalog     domain.CatalogClient
	broadcaster domain.UpdateBroadcaster // may be nil
	interval    time.Duration
	passDelay   time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	passBusy bool
}

// NewAutoRefresh creates the scheduler. broadcaster may be nil when no
// realtime hub is wired (e.g. in tests).
func NewAutoRefresh(
	logger domain.Logger,
	cfgProvider config.Provider,
	cache domain.ListingCache,
	catalog domain.CatalogClient,
	broadcaster domain.UpdateBroadcaster,
) *AutoRefresh {
	catalogCfg := cfgProvider.Get().Catalog

	interval := 5 * time.Minute
	if catalogCfg.RefreshIntervalSeconds > 0 {
		interval = time.Duration(catalogCfg.RefreshIntervalSeconds) * time.Second
	}
	passDelay := time.Second
	if catalogCfg.RefreshPassDelayMs > 0 {
		passDelay = time.Duration(catalogCfg.RefreshPassDelayMs) * time.Millisecond
	}

	return &AutoRefresh{
		logger:      logger,
		cache:       cache,
		catalog:     catalog,
		broadcaster: broadcaster,
		interval:    interval,
		passDelay:   passDelay,
	}
}

// Start transitions the scheduler to Running, performs one immediate pass,
// and repeats every interval. Calling Start while already running has no
// effect.
func (ar *AutoRefresh) Start(ctx context.Context) {
	ar.mu.Lock()
	if ar.running {
		ar.mu.Unlock()
		return
	}
	ar.running = true
	runCtx, cancel := context.WithCancel(ctx)
	ar.cancel = cancel
	ar.mu.Unlock()

	ar.logger.Info(ctx, "Starting auto-refresh scheduler", "interval", ar.interval.String())

	safego.Execute(runCtx, ar.logger, "AutoRefreshLoop", func() {
		ar.tryPass(runCtx)

		ticker := time.NewTicker(ar.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				ar.tryPass(runCtx)
			}
		}
	})
}

// Stop cancels the pending timer. An in-flight pass is not aborted; its
// remaining tuples complete and then the loop exits.
func (ar *AutoRefresh) Stop() {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if !ar.running {
		return
	}
	ar.running = false
	if ar.cancel != nil {
		ar.cancel()
		ar.cancel = nil
	}
	ar.logger.Info(context.Background(), "Auto-refresh scheduler stopped")
}

// ForceRefresh clears the entire cache and runs one pass synchronously
// before returning. This is the only operation that purges the cache
// outright.
func (ar *AutoRefresh) ForceRefresh(ctx context.Context) error {
	ar.logger.Info(ctx, "Force refreshing all cached catalog data")
	ar.cache.Clear()
	ar.refreshPass(ctx)
	return ctx.Err()
}

// Status reports the scheduler state and current cache statistics.
func (ar *AutoRefresh) Status() AutoRefreshStatus {
	ar.mu.Lock()
	running := ar.running
	ar.mu.Unlock()

	return AutoRefreshStatus{
		IsRunning:   running,
		HasInterval: running,
		CacheStats:  ar.cache.Stats(),
	}
}

// tryPass runs one refresh pass unless the previous one is still in
// flight; a tick landing mid-pass is skipped rather than queued.
func (ar *AutoRefresh) tryPass(ctx context.Context) {
	ar.mu.Lock()
	if ar.passBusy {
		ar.mu.Unlock()
		ar.logger.Warn(ctx, "Skipping refresh tick, previous pass still running")
		return
	}
	ar.passBusy = true
	ar.mu.Unlock()

	defer func() {
		ar.mu.Lock()
		ar.passBusy = false
		ar.mu.Unlock()
	}()

	ar.refreshPass(ctx)
}

// refreshPass iterates the critical tuples sequentially, inserting a short
// delay between upstream calls to stay within the catalog's fair-use
// expectations. Failure of one tuple never aborts the pass.
func (ar *AutoRefresh) refreshPass(ctx context.Context) {
	for i, q := range criticalQueries {
		if ctx.Err() != nil {
			ar.logger.Info(ctx, "Refresh pass interrupted by shutdown")
			return
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(ar.passDelay):
			}
		}

		key := cachekeys.ListingKey(q.Kind.String(), q.Page, q.PerPage)
		page, err := ar.catalog.Listing(ctx, q)
		if err != nil {
			metrics.RefreshFailures.Inc()
			ar.logger.Error(ctx, "Failed to refresh critical listing", "key", key, "error", err.Error())
			continue
		}

		ar.cache.Set(key, page.Media)
		ar.logger.Info(ctx, "Refreshed critical listing", "key", key, "items", len(page.Media))
	}

	metrics.RefreshPasses.Inc()
	if ar.broadcaster != nil {
		ar.broadcaster.Broadcast(domain.NewDataUpdatedMessage(time.Now().UnixMilli()))
	}
	ar.logger.Info(ctx, "Auto-refresh pass completed")
}
