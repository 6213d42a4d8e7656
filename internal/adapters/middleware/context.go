package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/aniview/aniview/pkg/contextkeys"
)

const XRequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an ID for log correlation.
// An inbound X-Request-ID is kept; otherwise a fresh UUID is minted. The
// ID is echoed on the response so clients can quote it when reporting
// problems.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(XRequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		w.Header().Set(XRequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
