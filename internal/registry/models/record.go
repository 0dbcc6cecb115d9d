package models

import (
	"time"

	id "effigy/pkg/domain"
	dErrors "effigy/pkg/domain-errors"
)

// BaseMetadata is the immutable identity block of a record. Name is the only
// field with a cross-cutting invariant (one name per live record); the block
// is extendable without touching the uniqueness machinery.
type BaseMetadata struct {
	Name id.Name `json:"name"`
}

// PhysicalMetadata is an opaque trait payload. The registry enforces no
// internal invariants beyond presence matching the record lifecycle.
type PhysicalMetadata struct {
	Height uint16            `json:"height"`
	Weight uint16            `json:"weight"`
	Traits map[string]string `json:"traits,omitempty"`
}

// AttributesMetadata is an opaque stat payload, lifecycle-bound like
// PhysicalMetadata.
type AttributesMetadata struct {
	Strength     uint8             `json:"strength"`
	Agility      uint8             `json:"agility"`
	Intelligence uint8             `json:"intelligence"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Record is the aggregate read model: one live character record with its
// three metadata blocks and current owner.
//
// Invariants:
//   - Base.Name is non-empty and never the all-zero sentinel
//   - ID comes from the store counter and is never reused after burn
//   - All three metadata blocks exist iff the record is live
type Record struct {
	ID         id.RecordID        `json:"id"`
	Owner      id.PrincipalID     `json:"owner"`
	Base       BaseMetadata       `json:"base"`
	Physical   PhysicalMetadata   `json:"physical"`
	Attributes AttributesMetadata `json:"attributes"`
	MintedAt   time.Time          `json:"minted_at"`
}

// NewBaseMetadata validates the identity block at the trust boundary.
func NewBaseMetadata(name id.Name) (BaseMetadata, error) {
	if name.IsZero() {
		return BaseMetadata{}, dErrors.New(dErrors.CodeValidation, "record name must not be the zero sentinel")
	}
	return BaseMetadata{Name: name}, nil
}
