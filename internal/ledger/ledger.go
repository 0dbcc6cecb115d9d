// Package ledger provides the identity-ownership capability: which records
// are live, who owns them, and who is approved to move them. Every ownership
// mutation (create, destroy, transfer) passes through the transfer guard
// before the write; the guard is the single choke point for the halt flag.
package ledger

import (
	"context"

	"effigy/internal/pause"
	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

// Guard is invoked immediately before any ownership-state change. Creation
// and destruction count as transfers from/to the nil principal. A non-nil
// error aborts the triggering operation with no mutation anywhere.
type Guard func(ctx context.Context, from, to id.PrincipalID, recordID id.RecordID) error

// PauseGuard builds the production guard: reject every ownership mutation
// while the halt flag is set, with no side effect otherwise.
func PauseGuard(flags pause.Store) Guard {
	return func(ctx context.Context, _, _ id.PrincipalID, _ id.RecordID) error {
		paused, err := flags.Get(ctx)
		if err != nil {
			return err
		}
		if paused {
			return sentinel.ErrPaused
		}
		return nil
	}
}

// Ledger owns the set of live record identifiers and their owner/approval
// state. Implementations must call the guard before every mutation.
type Ledger interface {
	// Exists reports whether the record identifier is live.
	Exists(ctx context.Context, recordID id.RecordID) (bool, error)
	// OwnerOf returns the current owner. sentinel.ErrNotFound when not live.
	OwnerOf(ctx context.Context, recordID id.RecordID) (id.PrincipalID, error)
	// IsApprovedOrOwner reports whether principal may move the record: it is
	// the owner, the per-record approved principal, or an operator approved
	// for all of the owner's records.
	IsApprovedOrOwner(ctx context.Context, principal id.PrincipalID, recordID id.RecordID) (bool, error)
	// Create registers a new live record owned by owner. sentinel.ErrConflict
	// when the identifier is already live.
	Create(ctx context.Context, owner id.PrincipalID, recordID id.RecordID) error
	// Destroy removes a live record and clears its approval state.
	Destroy(ctx context.Context, recordID id.RecordID) error
	// Transfer moves ownership and clears the per-record approval.
	Transfer(ctx context.Context, from, to id.PrincipalID, recordID id.RecordID) error
	// Approve sets the per-record approved principal. Nil clears it.
	Approve(ctx context.Context, operator id.PrincipalID, recordID id.RecordID) error
	// SetApprovalForAll grants or revokes operator rights over every record
	// owned by owner, now and in the future.
	SetApprovalForAll(ctx context.Context, owner, operator id.PrincipalID, approved bool) error
}
