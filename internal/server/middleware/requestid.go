package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDKey is the context key under which the request ID is stored.
type requestIDKey struct{}

// headerRequestID is the header carrying the request ID in both directions.
const headerRequestID = "X-Request-ID"

// RequestID returns middleware that tags every request with a unique ID. An
// incoming X-Request-ID header is honored so upstream proxies can correlate;
// otherwise a fresh UUID is generated. The ID is echoed in the response and
// stored in the request context for the logging middleware.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}

			w.Header().Set(headerRequestID, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the request ID stored in ctx, or "" when the request
// did not pass through the RequestID middleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
