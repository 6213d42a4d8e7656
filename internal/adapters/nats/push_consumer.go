package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/domain"
)

// PushHandler receives the raw payload of one ingested push message.
type PushHandler func(ctx context.Context, payload []byte)

// PushConsumerAdapter subscribes to the broker subject carrying push
// payloads from upstream publishers (episode releases, editorial notices)
// and hands each one to the registered handler, normally the offline
// worker's notification path. The consumer is optional: when no broker URL
// is configured the service runs without it and pages simply never receive
// relayed pushes.
type PushConsumerAdapter struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	logger  domain.Logger
	subject string

	mu      sync.Mutex
	handler PushHandler
}

// NewPushConsumerAdapter connects to NATS and subscribes to the configured
// push subject. It returns a nil adapter (and nil error) when NATS is not
// configured.
func NewPushConsumerAdapter(
	ctx context.Context,
	cfgProvider config.Provider,
	appLogger domain.Logger,
) (*PushConsumerAdapter, func(), error) {
	appFullCfg := cfgProvider.Get()
	natsCfg := appFullCfg.NATS

	if natsCfg.URL == "" {
		appLogger.Info(ctx, "NATS URL not configured, push relay disabled")
		return nil, func() {}, nil
	}

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-push-consumer", appFullCfg.App.ServiceName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			subject := ""
			if s != nil {
				subject = s.Subject
			}
			appLogger.Error(ctx, "NATS error", "subscription", subject, "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	appLogger.Info(ctx, "Successfully connected to NATS server", "url", nc.ConnectedUrl())

	adapter := &PushConsumerAdapter{
		nc:      nc,
		logger:  appLogger,
		subject: natsCfg.PushSubject,
	}

	if err := adapter.subscribe(ctx); err != nil {
		nc.Close()
		return nil, nil, err
	}

	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		adapter.Close()
	}

	return adapter, cleanup, nil
}

// SetPushHandler registers the consumer of ingested push payloads.
// Messages arriving before a handler is registered are dropped.
func (a *PushConsumerAdapter) SetPushHandler(handler PushHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = handler
}

// deliver hands one payload to the registered handler. Payload validation
// is the handler's job; the worker substitutes defaults for malformed JSON.
func (a *PushConsumerAdapter) deliver(payload []byte) {
	a.mu.Lock()
	handler := a.handler
	a.mu.Unlock()

	if handler == nil {
		a.logger.Warn(context.Background(), "Dropping push payload, no handler registered", "subject", a.subject)
		return
	}
	handler(context.Background(), payload)
}

func (a *PushConsumerAdapter) subscribe(ctx context.Context) error {
	sub, err := a.nc.Subscribe(a.subject, func(msg *nats.Msg) {
		a.logger.Info(context.Background(), "Push payload received", "subject", msg.Subject)
		a.deliver(msg.Data)
	})
	if err != nil {
		a.logger.Error(ctx, "Failed to subscribe to push subject", "subject", a.subject, "error", err.Error())
		return fmt.Errorf("failed to subscribe to %s: %w", a.subject, err)
	}

	a.sub = sub
	a.logger.Info(ctx, "Subscribed to push subject", "subject", a.subject)
	return nil
}

// Close drains and closes the NATS connection.
func (a *PushConsumerAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		a.logger.Info(context.Background(), "Draining NATS connection...")
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		}
	}
}

// NatsConn returns the underlying NATS connection, used by readiness
// checks. Safe to call on a nil adapter (push relay disabled).
func (a *PushConsumerAdapter) NatsConn() *nats.Conn {
	if a == nil {
		return nil
	}
	return a.nc
}
