// Package request provides request-ID middleware. Every request gets a
// correlation id, either propagated from the X-Request-ID header or freshly
// generated, echoed back on the response and threaded through the context for
// logs and audit events.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"remitpool/pkg/requestcontext"
)

const Header = "X-Request-ID"

// Middleware assigns a request id and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
