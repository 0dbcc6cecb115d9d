package middleware

import (
	"log/slog"
	"net/http"

	"effigy/pkg/secrets"
)

// RequireAdminToken gates deployment-level endpoints (base URI, role
// management) behind a shared admin token. The hash comparison is
// constant-time via bcrypt.
func RequireAdminToken(adminTokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if token == "" || !secrets.Verify(adminTokenHash, token) {
				logger.WarnContext(r.Context(), "admin token mismatch",
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
