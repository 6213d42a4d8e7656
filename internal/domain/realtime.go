package domain

// Message types of the json.v1 realtime protocol sent to connected pages.
const (
	MessageTypeReady       = "ready"
	MessageTypeDataUpdated = "data_updated"
	MessageTypePush        = "push"
	MessageTypeError       = "error"
)

// BaseMessage is the generic envelope for all realtime messages.
type BaseMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DataUpdatedPayload is broadcast after the auto-refresh scheduler completes
// a pass, so connected pages can re-read listing endpoints.
type DataUpdatedPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// NewReadyMessage creates the message sent once after a page connects.
func NewReadyMessage() BaseMessage {
	return BaseMessage{Type: MessageTypeReady}
}

// NewDataUpdatedMessage creates a "data_updated" broadcast.
func NewDataUpdatedMessage(timestamp int64) BaseMessage {
	return BaseMessage{
		Type:    MessageTypeDataUpdated,
		Payload: DataUpdatedPayload{Timestamp: timestamp},
	}
}

// NewPushMessage wraps a relayed push payload.
func NewPushMessage(payload interface{}) BaseMessage {
	return BaseMessage{
		Type:    MessageTypePush,
		Payload: payload,
	}
}

// UpdateBroadcaster fans a message out to every connected page. The
// scheduler and the push consumer depend on this interface rather than on
// the websocket hub directly.
type UpdateBroadcaster interface {
	Broadcast(msg BaseMessage)
}
