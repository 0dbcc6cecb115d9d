package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "effigy/pkg/domain"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	PrincipalID id.PrincipalID
	JTI         string
}

type contextKeyPrincipalID struct{}

// ContextKeyPrincipalID is exported for tests that build contexts by hand.
var ContextKeyPrincipalID = contextKeyPrincipalID{}

// GetPrincipalID retrieves the authenticated principal from the context.
// Returns the nil principal when the request was not authenticated.
func GetPrincipalID(ctx context.Context) id.PrincipalID {
	if p, ok := ctx.Value(ContextKeyPrincipalID).(id.PrincipalID); ok {
		return p
	}
	return id.NilPrincipal
}

// WithPrincipalID injects a principal into the context. Used by tests that
// skip the HTTP middleware chain.
func WithPrincipalID(ctx context.Context, principal id.PrincipalID) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipalID, principal)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the bearer token and stores the principal in context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := WithPrincipalID(r.Context(), claims.PrincipalID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
