package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and ledger layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record, role binding, or flag does not exist in store
// - ErrConflict: a uniqueness constraint (name reservation) would be violated
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrPaused: the registry halt flag is set and blocks the mutation
// - ErrUnavailable: backing service (redis, postgres, broker) temporarily down
//
// For validation errors (bad input, malformed names), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrPaused       = errors.New("paused")
	ErrUnavailable  = errors.New("unavailable")
)
