package testutil

import (
	"context"
	"net/http"
	"time"

	adminmw "remitpool/pkg/platform/middleware/admin"
	"remitpool/pkg/requestcontext"
)

// WithAdminCaller adds an operator account to the request context.
// This simulates what the admin token middleware would do for a valid token.
func WithAdminCaller(req *http.Request, caller string) *http.Request {
	return req.WithContext(adminmw.WithCaller(req.Context(), caller))
}

// WithRequestTime pins the request-scoped clock on a request.
// This simulates the requesttime middleware with a controlled instant.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
