// Package domainerrors defines the typed error taxonomy surfaced to callers.
//
// Every failure of a registry operation is one of these codes; transports map
// codes to status lines and never invent their own. Infrastructure layers use
// pkg/platform/sentinel instead and services translate at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and transports.
type Code string

const (
	// CodeValidation marks rejected input (empty or sentinel names, bad payloads).
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed identifiers at trust boundaries.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks structurally broken requests (undecodable bodies).
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks missing or unverifiable caller identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller without the required role
	// or ownership.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks lookups of record identifiers that are not live.
	CodeNotFound Code = "not_found"
	// CodeConflict marks uniqueness violations (name already reserved).
	CodeConflict Code = "conflict"
	// CodePaused marks mutations rejected by the registry halt flag.
	CodePaused Code = "paused"
	// CodeInvariantViolation marks illegal state transitions (pausing an
	// already-paused registry).
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks operations aborted by context deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is the single error type crossing the service boundary.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with a code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/As for sentinel checks.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// Is is a readability alias for HasCode used in handlers.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status. Transports should not hand-roll
// this mapping.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodePaused:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
