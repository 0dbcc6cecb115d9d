// Package store persists the registry's three metadata tables, the
// name-reservation set, and the monotonic record counter.
package store

import (
	"context"

	"effigy/internal/registry/models"
	id "effigy/pkg/domain"
)

// MetadataStore is interface-driven to keep the lifecycle controller testable
// and to allow swapping in-memory and Postgres persistence without rewiring
// business code.
//
// The three tables and the reservation set move in lockstep: Insert writes
// all of them, Delete clears all of them, in the same logical step. Callers
// provide the ordering guarantee (single-writer boundary) that makes the
// check-then-insert sequence safe.
type MetadataStore interface {
	// NextID allocates the next record identifier from the global counter.
	// The counter only ever advances; identifiers are never reused. Callers
	// must not invoke NextID before every precondition has passed; a failed
	// operation must leave the counter untouched.
	NextID(ctx context.Context) (id.RecordID, error)
	// NameInUse reports whether a name is currently reserved by a live record.
	NameInUse(ctx context.Context, name id.Name) (bool, error)
	// Insert writes the three metadata blocks and reserves the name, keyed by
	// the new identifier. sentinel.ErrConflict when the name is reserved.
	Insert(ctx context.Context, record *models.Record) error
	// Delete removes the record's entries from all three tables and releases
	// its name in the same step. sentinel.ErrNotFound for a dead identifier.
	Delete(ctx context.Context, recordID id.RecordID) error
	// Find returns the metadata for a live record. Ownership lives in the
	// ledger; Find leaves Owner unset and the service fills it in.
	Find(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	// List returns all live records ordered by identifier, Owner unset.
	List(ctx context.Context) ([]*models.Record, error)
}
