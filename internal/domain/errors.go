package domain

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorCode represents a specific error condition.
type ErrorCode string

const (
	ErrBadRequest          ErrorCode = "BadRequest"          // HTTP 400, e.g., search term too short
	ErrInvalidAPIKey       ErrorCode = "InvalidAPIKey"       // HTTP 401
	ErrNotFound            ErrorCode = "NotFound"            // HTTP 404
	ErrMethodNotAllowed    ErrorCode = "MethodNotAllowed"    // HTTP 405
	ErrUpstreamUnavailable ErrorCode = "UpstreamUnavailable" // HTTP 502, catalog fetch failed and nothing cached
	ErrInternal            ErrorCode = "InternalServerError" // HTTP 500
)

// ErrCacheMiss is returned by keyed stores when no live entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// ErrorResponse is the standard error format returned to clients as JSON,
// over HTTP or inside a WebSocket message envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}
