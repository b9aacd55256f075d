package httptransport

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"riscguard/pkg/requestcontext"
)

// RequestMetadata stamps each request with an ID, the arrival time, and the
// client IP so services and the audit trail share one view of the request.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		ctx = requestcontext.WithClientIP(ctx, r.RemoteAddr)

		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
