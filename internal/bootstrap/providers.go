package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/aniview/aniview/internal/adapters/anilist"
	"github.com/aniview/aniview/internal/adapters/config"
	apphttp "github.com/aniview/aniview/internal/adapters/http"
	"github.com/aniview/aniview/internal/adapters/logger"
	"github.com/aniview/aniview/internal/adapters/middleware"
	appnats "github.com/aniview/aniview/internal/adapters/nats"
	appredis "github.com/aniview/aniview/internal/adapters/redis"
	wsadapter "github.com/aniview/aniview/internal/adapters/websocket"
	"github.com/aniview/aniview/internal/application"
	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/internal/worker"
)

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
// It returns the logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			zapLogger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zapLogger, cleanup, nil
}

// App aggregates every long-lived component; Run wires the routes and
// drives the lifecycle.
type App struct {
	configProvider   config.Provider
	logger           domain.Logger
	httpServeMux     *http.ServeMux
	httpServer       *http.Server
	redisClient      *redis.Client
	pushConsumer     *appnats.PushConsumerAdapter // nil when NATS is not configured
	hub              *wsadapter.Hub
	wsRouter         *wsadapter.Router
	autoRefresh      *application.AutoRefresh
	catalogHandler   *apphttp.CatalogHandler
	cacheHandler     *apphttp.CacheHandler
	reviewHandler    *apphttp.ReviewHandler
	watchlistHandler *apphttp.WatchlistHandler
	pushHandler      *apphttp.PushHandler
	worker           *worker.Worker
	syncRegistrar    *worker.ChannelRegistrar
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	redisClient *redis.Client,
	pushConsumer *appnats.PushConsumerAdapter,
	hub *wsadapter.Hub,
	wsRouter *wsadapter.Router,
	autoRefresh *application.AutoRefresh,
	catalogHandler *apphttp.CatalogHandler,
	cacheHandler *apphttp.CacheHandler,
	reviewHandler *apphttp.ReviewHandler,
	watchlistHandler *apphttp.WatchlistHandler,
	pushHandler *apphttp.PushHandler,
	offlineWorker *worker.Worker,
	syncRegistrar *worker.ChannelRegistrar,
) (*App, func(), error) {
	app := &App{
		configProvider:   cfgProvider,
		logger:           appLogger,
		httpServeMux:     mux,
		httpServer:       server,
		redisClient:      redisClient,
		pushConsumer:     pushConsumer,
		hub:              hub,
		wsRouter:         wsRouter,
		autoRefresh:      autoRefresh,
		catalogHandler:   catalogHandler,
		cacheHandler:     cacheHandler,
		reviewHandler:    reviewHandler,
		watchlistHandler: watchlistHandler,
		pushHandler:      pushHandler,
		worker:           offlineWorker,
		syncRegistrar:    syncRegistrar,
	}

	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		app.autoRefresh.Stop()
		app.hub.CloseAll("server shutting down")
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
func ConfigProvider(appCtx context.Context, zapLogger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zapLogger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides the HTTP server. The whole mux runs
// behind the request ID middleware.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()

	readTimeout := 10 * time.Second
	writeTimeout := 10 * time.Second
	idleTimeout := 60 * time.Second
	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      middleware.RequestIDMiddleware(mux),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// RedisClientProvider provides a Redis client and a cleanup function.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// StorageProvider provides the reviews and watchlist store.
func StorageProvider(redisClient *redis.Client, appLogger domain.Logger) domain.Storage {
	return appredis.NewStorageAdapter(redisClient, appLogger)
}

// IdempotencyStoreProvider provides the replayed-mutation dedupe store.
func IdempotencyStoreProvider(redisClient *redis.Client, appLogger domain.Logger) domain.IdempotencyStore {
	return appredis.NewIdempotencyAdapter(redisClient, appLogger)
}

// PushSubscriptionStoreProvider provides the push subscription store.
func PushSubscriptionStoreProvider(redisClient *redis.Client, appLogger domain.Logger) domain.PushSubscriptionStore {
	return appredis.NewPushSubscriptionAdapter(redisClient, appLogger)
}

// ListingCacheProvider provides the in-process response cache.
func ListingCacheProvider(cfgProvider config.Provider) domain.ListingCache {
	return application.NewResponseCache(cfgProvider)
}

// CatalogClientProvider provides the upstream catalog client.
func CatalogClientProvider(cfgProvider config.Provider, appLogger domain.Logger) domain.CatalogClient {
	return anilist.NewClient(cfgProvider, appLogger)
}

// HubProvider provides the realtime update hub.
func HubProvider(appLogger domain.Logger, cfgProvider config.Provider) *wsadapter.Hub {
	return wsadapter.NewHub(appLogger, cfgProvider)
}

// UpdateBroadcasterProvider exposes the hub as the broadcast interface.
func UpdateBroadcasterProvider(hub *wsadapter.Hub) domain.UpdateBroadcaster {
	return hub
}

// AutoRefreshProvider provides the auto-refresh scheduler.
func AutoRefreshProvider(
	appLogger domain.Logger,
	cfgProvider config.Provider,
	cache domain.ListingCache,
	catalog domain.CatalogClient,
	broadcaster domain.UpdateBroadcaster,
) *application.AutoRefresh {
	return application.NewAutoRefresh(appLogger, cfgProvider, cache, catalog, broadcaster)
}

// CatalogServiceProvider provides the cache-aware catalog read service.
func CatalogServiceProvider(appLogger domain.Logger, cache domain.ListingCache, catalog domain.CatalogClient) *application.CatalogService {
	return application.NewCatalogService(appLogger, cache, catalog)
}

// CatalogHandlerProvider provides the catalog HTTP handler.
func CatalogHandlerProvider(appLogger domain.Logger, service *application.CatalogService) *apphttp.CatalogHandler {
	return apphttp.NewCatalogHandler(appLogger, service)
}

// CacheHandlerProvider provides the cache control HTTP handler.
func CacheHandlerProvider(appLogger domain.Logger, cfgProvider config.Provider, refresher *application.AutoRefresh) *apphttp.CacheHandler {
	return apphttp.NewCacheHandler(appLogger, cfgProvider, refresher)
}

// ReviewHandlerProvider provides the review HTTP handler.
func ReviewHandlerProvider(appLogger domain.Logger, cfgProvider config.Provider, storage domain.Storage, idem domain.IdempotencyStore) *apphttp.ReviewHandler {
	return apphttp.NewReviewHandler(appLogger, cfgProvider, storage, idem)
}

// WatchlistHandlerProvider provides the watchlist HTTP handler.
func WatchlistHandlerProvider(appLogger domain.Logger, cfgProvider config.Provider, storage domain.Storage, idem domain.IdempotencyStore) *apphttp.WatchlistHandler {
	return apphttp.NewWatchlistHandler(appLogger, cfgProvider, storage, idem)
}

// PushHandlerProvider provides the push subscription HTTP handler.
func PushHandlerProvider(appLogger domain.Logger, store domain.PushSubscriptionStore) *apphttp.PushHandler {
	return apphttp.NewPushHandler(appLogger, store)
}

// WebsocketRouterProvider provides the realtime endpoint router.
func WebsocketRouterProvider(appLogger domain.Logger, hub *wsadapter.Hub) *wsadapter.Router {
	return wsadapter.NewRouter(appLogger, hub)
}

// NatsPushConsumerProvider provides the optional NATS push consumer. The
// push handler is registered in App.Run once the worker exists.
func NatsPushConsumerProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*appnats.PushConsumerAdapter, func(), error) {
	return appnats.NewPushConsumerAdapter(ctx, cfgProvider, appLogger)
}

// WorkerBridgeProvider provides the hub-backed page channel for the worker.
func WorkerBridgeProvider(appLogger domain.Logger, hub *wsadapter.Hub) *wsadapter.WorkerBridge {
	return wsadapter.NewWorkerBridge(appLogger, hub)
}

// WorkerFilesystemProvider provides the filesystem backing the named caches.
func WorkerFilesystemProvider() afero.Fs {
	return afero.NewOsFs()
}

// WorkerFetcherProvider provides the worker's network fetcher, pointed at
// this service's own origin.
func WorkerFetcherProvider(cfgProvider config.Provider, appLogger domain.Logger) (worker.Fetcher, error) {
	appCfg := cfgProvider.Get()
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", appCfg.Server.HTTPPort)
	timeout := time.Duration(appCfg.Catalog.RequestTimeoutSeconds) * time.Second
	return worker.NewHTTPFetcher(appLogger, baseURL, timeout)
}

// SyncRegistrarProvider provides the channel-backed sync registrar.
func SyncRegistrarProvider() *worker.ChannelRegistrar {
	return worker.NewChannelRegistrar()
}

// WorkerProvider provides the offline worker actor. The bridge serves as
// both its page channel and its notifier.
func WorkerProvider(
	appLogger domain.Logger,
	cfgProvider config.Provider,
	fs afero.Fs,
	fetcher worker.Fetcher,
	bridge *wsadapter.WorkerBridge,
	registrar *worker.ChannelRegistrar,
) (*worker.Worker, error) {
	return worker.New(appLogger, cfgProvider, fs, fetcher, bridge, bridge, registrar)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Infrastructure adapters
	RedisClientProvider,
	StorageProvider,
	IdempotencyStoreProvider,
	PushSubscriptionStoreProvider,
	CatalogClientProvider,
	HubProvider,
	UpdateBroadcasterProvider,
	NatsPushConsumerProvider,

	// Application services
	ListingCacheProvider,
	AutoRefreshProvider,
	CatalogServiceProvider,

	// HTTP handlers
	CatalogHandlerProvider,
	CacheHandlerProvider,
	ReviewHandlerProvider,
	WatchlistHandlerProvider,
	PushHandlerProvider,
	WebsocketRouterProvider,

	// Offline worker
	WorkerBridgeProvider,
	WorkerFilesystemProvider,
	WorkerFetcherProvider,
	SyncRegistrarProvider,
	WorkerProvider,

	NewApp,
)
