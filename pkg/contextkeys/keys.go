package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// UserIDKey is the context key for storing and retrieving the user ID
	// resolved from the session token.
	UserIDKey contextKey = "user_id"

	// EventIDKey is the context key for storing and retrieving an event ID
	// (e.g. a push message or sync event identifier).
	EventIDKey contextKey = "event_id"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
