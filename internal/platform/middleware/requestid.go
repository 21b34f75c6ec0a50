package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"beacon/pkg/requestcontext"
)

// HeaderRequestID is honored when the upstream caller already assigned an id.
const HeaderRequestID = "X-Request-ID"

// RequestID assigns each request a correlation id and exposes it via context
// and response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID set by the RequestID middleware.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
