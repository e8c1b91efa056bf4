// Package request assigns every HTTP request a correlation ID.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"processguard/pkg/requestcontext"
)

// HeaderRequestID carries the correlation ID in and out of the service.
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLength caps caller-supplied IDs before they reach logs.
const maxRequestIDLength = 128

// RequestID reuses a caller-supplied X-Request-ID or generates one, stores
// it in the context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}

// GetRequestID retrieves the correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
