package worker

import "encoding/json"

// Message types sent by pages to the worker.
const (
	MessageSkipWaiting        = "SKIP_WAITING"
	MessageCacheAnimeData     = "CACHE_ANIME_DATA"
	MessageStoreOfflineAction = "STORE_OFFLINE_ACTION"
	MessageNotificationClick  = "NOTIFICATION_CLICK"
)

// Notice types delivered by the worker to open pages.
const (
	NoticeAnimeDataUpdated       = "ANIME_DATA_UPDATED"
	NoticeUpdateAvailable        = "UPDATE_AVAILABLE"
	NoticeOfflineActionStored    = "OFFLINE_ACTION_STORED"
	NoticeBackgroundSyncComplete = "BACKGROUND_SYNC_COMPLETE"
)

// PageMessage is a message posted by a page into the worker's inbox.
type PageMessage struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	Action *ActionRequest  `json:"action,omitempty"`
}

// ActionRequest carries a write captured by the page while offline, to be
// queued and replayed by the sync coordinator.
type ActionRequest struct {
	Type ActionKind      `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Notice is a worker-to-page status message.
type Notice struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	ActionID  string `json:"actionId,omitempty"`
}

// PageClients is the worker's view of its open pages. The worker is the
// sole owner of its caches; pages only ever hear about state changes
// through these notices.
type PageClients interface {
	// Broadcast delivers a notice to every open page.
	Broadcast(notice Notice)

	// FocusOrOpen focuses an existing page showing url, or opens a new one.
	FocusOrOpen(url string) error

	// Claim takes control of all open pages without requiring a reload.
	Claim()
}

// SyncRegistrar asks the platform to fire a sync event for the given tag
// once conditions permit.
type SyncRegistrar interface {
	Register(tag SyncTag) error
}
