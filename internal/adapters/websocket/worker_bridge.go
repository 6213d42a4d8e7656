package websocket

import (
	"context"

	"github.com/aniview/aniview/internal/domain"
	"github.com/aniview/aniview/internal/worker"
)

// WorkerBridge connects the offline worker to its pages through the
// realtime hub: worker notices and push notifications become hub
// broadcasts. It implements worker.PageClients and worker.Notifier.
type WorkerBridge struct {
	logger domain.Logger
	hub    *Hub
}

// NewWorkerBridge creates the bridge over the hub.
func NewWorkerBridge(logger domain.Logger, hub *Hub) *WorkerBridge {
	return &WorkerBridge{
		logger: logger,
		hub:    hub,
	}
}

// Broadcast delivers a worker notice to every connected page.
func (b *WorkerBridge) Broadcast(notice worker.Notice) {
	b.hub.Broadcast(domain.BaseMessage{Type: notice.Type, Payload: notice})
}

// FocusOrOpen asks pages to navigate to url. With no page connected there
// is nothing to focus; that is not an error.
func (b *WorkerBridge) FocusOrOpen(url string) error {
	b.hub.Broadcast(domain.BaseMessage{
		Type:    "navigate",
		Payload: map[string]string{"url": url},
	})
	return nil
}

// Claim announces that the active worker version changed so pages can
// re-sync their state.
func (b *WorkerBridge) Claim() {
	b.hub.Broadcast(domain.BaseMessage{Type: "controller_change"})
}

// Show relays a notification to connected pages as a push message.
func (b *WorkerBridge) Show(ctx context.Context, n worker.Notification) error {
	b.logger.Info(ctx, "Relaying notification to pages", "title", n.Title)
	b.hub.Broadcast(domain.NewPushMessage(n))
	return nil
}
