package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aniview/aniview/internal/worker"
	"github.com/aniview/aniview/pkg/safego"
)

// Run starts the application's HTTP server, the offline worker, the
// auto-refresh scheduler, and blocks until the context is canceled or a
// fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info(ctx, "Starting AniView service...",
		"service_name", a.configProvider.Get().App.ServiceName,
		"version", a.configProvider.Get().App.Version,
		"http_port", a.configProvider.Get().Server.HTTPPort,
	)

	a.registerOperationalRoutes(ctx)

	a.catalogHandler.RegisterRoutes(ctx, a.httpServeMux)
	a.cacheHandler.RegisterRoutes(ctx, a.httpServeMux)
	a.reviewHandler.RegisterRoutes(ctx, a.httpServeMux)
	a.watchlistHandler.RegisterRoutes(ctx, a.httpServeMux)
	a.pushHandler.RegisterRoutes(ctx, a.httpServeMux)
	a.wsRouter.RegisterRoutes(ctx, a.httpServeMux)

	// Inbound page frames become worker message events.
	a.hub.SetMessageHandler(func(msgCtx context.Context, payload []byte) {
		var msg worker.PageMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			a.logger.Warn(msgCtx, "Dropping undecodable page message", "error", err.Error())
			return
		}
		if err := a.worker.Message(msgCtx, &msg); err != nil {
			a.logger.Warn(msgCtx, "Page message handling failed", "type", msg.Type, "error", err.Error())
		}
	})

	// Ingested push payloads go through the worker's notification path so
	// malformed payloads get defaulted and pages are notified through the
	// bridge.
	if a.pushConsumer != nil {
		a.pushConsumer.SetPushHandler(func(pushCtx context.Context, payload []byte) {
			if err := a.worker.HandlePush(pushCtx, payload); err != nil {
				a.logger.Warn(pushCtx, "Push notification handling failed", "error", err.Error())
			}
		})
	}

	safego.Execute(ctx, a.logger, "OfflineWorkerActor", func() {
		a.worker.Run(ctx)
	})

	safego.Execute(ctx, a.logger, "OfflineWorkerLifecycle", func() {
		if err := a.worker.Install(ctx); err != nil {
			a.logger.Error(ctx, "Offline worker install failed", "error", err.Error())
			return
		}
		if err := a.worker.Activate(ctx); err != nil {
			a.logger.Error(ctx, "Offline worker activation failed", "error", err.Error())
		}
	})

	safego.Execute(ctx, a.logger, "SyncRegistrarDispatcher", func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tag := <-a.syncRegistrar.Requests():
				if err := a.worker.Sync(ctx, tag); err != nil {
					a.logger.Warn(ctx, "Sync pass failed, re-registering for retry", "tag", tag.String(), "error", err.Error())
					_ = a.syncRegistrar.Register(tag)
					select {
					case <-ctx.Done():
						return
					case <-time.After(30 * time.Second):
					}
				}
			}
		}
	})

	if interval := a.configProvider.Get().Worker.PeriodicSyncIntervalSeconds; interval > 0 {
		safego.Execute(ctx, a.logger, "PeriodicSyncTicker", func() {
			ticker := time.NewTicker(time.Duration(interval) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := a.worker.Sync(ctx, worker.SyncAnimeUpdates); err != nil {
						a.logger.Warn(ctx, "Periodic sync pass failed", "error", err.Error())
					}
				}
			}
		})
	}

	a.autoRefresh.Start(ctx)

	// Graceful shutdown on SIGINT/SIGTERM.
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	safego.Execute(ctx, a.logger, "HTTPServer", func() {
		a.logger.Info(ctx, "HTTP server starting", "address", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
		close(serverErrChan)
	})

	select {
	case sig := <-shutdownChan:
		a.logger.Info(ctx, "Shutdown signal received", "signal", sig.String())
	case err := <-serverErrChan:
		if err != nil {
			a.logger.Error(ctx, "HTTP server failed", "error", err.Error())
			return err
		}
	case <-ctx.Done():
		a.logger.Info(ctx, "Application context canceled")
	}

	shutdownTimeout := time.Duration(a.configProvider.Get().App.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.autoRefresh.Stop()
	a.hub.CloseAll("server shutting down")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error(shutdownCtx, "HTTP server graceful shutdown failed", "error", err.Error())
		return err
	}
	a.logger.Info(shutdownCtx, "HTTP server shut down gracefully")
	return nil
}

// registerOperationalRoutes wires health, readiness, and metrics.
func (a *App) registerOperationalRoutes(ctx context.Context) {
	a.httpServeMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	a.httpServeMux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		reqCtx := r.Context()
		checks := map[string]string{}
		ready := true

		if _, err := a.redisClient.Ping(reqCtx).Result(); err != nil {
			checks["redis"] = "error: " + err.Error()
			ready = false
		} else {
			checks["redis"] = "ok"
		}

		if conn := a.pushConsumer.NatsConn(); conn == nil {
			checks["nats"] = "not_configured"
		} else if conn.Status() == nats.CONNECTED {
			checks["nats"] = "ok"
		} else {
			checks["nats"] = "error: status " + conn.Status().String()
			ready = false
		}

		w.Header().Set("Content-Type", "application/json")
		status := "READY"
		code := http.StatusOK
		if !ready {
			status = "NOT_READY"
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     status,
			"components": checks,
		})
	})

	a.httpServeMux.Handle("GET /metrics", promhttp.Handler())

	a.logger.Info(ctx, "Operational routes registered", "routes", []string{"/health", "/ready", "/metrics"})
}
