package testutil

import (
	"context"
	"net/http"

	"effigy/internal/platform/middleware"
	id "effigy/pkg/domain"
)

// WithPrincipal adds an authenticated principal to the request context. This
// simulates what the auth middleware would do for authenticated requests. A
// malformed principal string is silently ignored.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	parsed, err := id.ParsePrincipalID(principal)
	if err != nil {
		return req
	}
	return req.WithContext(middleware.WithPrincipalID(req.Context(), parsed))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, requestID)
	return req.WithContext(ctx)
}
