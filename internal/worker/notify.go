package worker

import (
	"context"
	"encoding/json"
)

const (
	defaultNotificationTitle = "AniView"
	defaultNotificationBody  = "New anime updates available!"
	defaultNotificationIcon  = "/icons/icon-192.png"
	defaultNotificationURL   = "/"

	// NotificationActionExplore is the primary notification action.
	NotificationActionExplore = "explore"
	// NotificationActionClose dismisses the notification without navigating.
	NotificationActionClose = "close"
)

// NotificationAction is one button on a displayed notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is a system notification shown on a push event.
type Notification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon,omitempty"`
	URL     string               `json:"url,omitempty"`
	Actions []NotificationAction `json:"actions,omitempty"`
}

// Notifier displays system notifications on behalf of the worker.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
}

// pushPayload is the tolerated shape of an incoming push message. Every
// field is optional; anything missing falls back to the defaults.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	URL   string `json:"url"`
}

// HandlePush parses the push payload and shows a notification. A missing
// or malformed payload is substituted with defaults rather than raised;
// the worker must never crash on bad input mid-session.
func (w *Worker) HandlePush(ctx context.Context, raw []byte) error {
	n := Notification{
		Title: defaultNotificationTitle,
		Body:  defaultNotificationBody,
		Icon:  defaultNotificationIcon,
		URL:   defaultNotificationURL,
		Actions: []NotificationAction{
			{Action: NotificationActionExplore, Title: "Explore"},
			{Action: NotificationActionClose, Title: "Close"},
		},
	}

	if len(raw) > 0 {
		var p pushPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			w.logger.Warn(ctx, "Malformed push payload, using defaults", "error", err.Error())
		} else {
			if p.Title != "" {
				n.Title = p.Title
			}
			if p.Body != "" {
				n.Body = p.Body
			}
			if p.Icon != "" {
				n.Icon = p.Icon
			}
			if p.URL != "" {
				n.URL = p.URL
			}
		}
	}

	w.logger.Info(ctx, "Showing push notification", "title", n.Title)
	return w.notifier.Show(ctx, n)
}

// HandleNotificationClick reacts to a user interacting with a shown
// notification. The dismiss action does nothing further; the primary
// action (or a default click) focuses an existing page on the target URL
// or opens a new one.
func (w *Worker) HandleNotificationClick(ctx context.Context, action, targetURL string) error {
	if action == NotificationActionClose {
		return nil
	}
	if targetURL == "" {
		targetURL = defaultNotificationURL
	}
	return w.pages.FocusOrOpen(targetURL)
}
