// Package shared centralizes domain error translation to HTTP responses so
// every handler emits the same JSON envelopes.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "effigy/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError renders a domain error as its HTTP status and envelope. Errors
// without a domain code map to 500 with no detail leaked.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := ErrorResponse{Error: string(code)}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		body.Message = domainErr.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
