package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aniview_listing_cache_hits_total",
			Help: "Number of listing cache hits, by resource.",
		},
		[]string{"resource"},
	)

	ListingCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aniview_listing_cache_misses_total",
			Help: "Number of listing cache misses, by resource.",
		},
		[]string{"resource"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aniview_upstream_requests_total",
			Help: "Number of requests issued to the upstream catalog, by outcome.",
		},
		[]string{"outcome"},
	)

	RefreshPasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aniview_refresh_passes_total",
			Help: "Number of completed auto-refresh passes.",
		},
	)

	RefreshFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aniview_refresh_key_failures_total",
			Help: "Number of critical keys whose refresh failed within a pass.",
		},
	)

	RealtimeClientsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aniview_realtime_clients",
			Help: "Number of pages connected to the realtime update hub.",
		},
	)

	WorkerFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aniview_worker_fetches_total",
			Help: "Number of fetches handled by the offline worker, by strategy and result.",
		},
		[]string{"strategy", "result"},
	)

	OfflineActionsQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aniview_offline_actions_queued_total",
			Help: "Number of offline actions stored for background sync, by kind.",
		},
		[]string{"kind"},
	)

	OfflineActionsReplayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aniview_offline_actions_replayed_total",
			Help: "Number of offline actions replayed, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

// IncrementRealtimeClients increments the connected pages gauge.
func IncrementRealtimeClients() {
	RealtimeClientsGauge.Inc()
}

// DecrementRealtimeClients decrements the connected pages gauge.
func DecrementRealtimeClients() {
	RealtimeClientsGauge.Dec()
}
