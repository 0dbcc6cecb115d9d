package domain

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	dErrors "effigy/pkg/domain-errors"
)

// PrincipalID identifies an authenticated caller (minter, pauser, owner,
// operator). Distinct type so it cannot be confused with other UUIDs.
type PrincipalID uuid.UUID

// NilPrincipal is the null owner used by the ledger for mint/burn transfers.
var NilPrincipal = PrincipalID(uuid.Nil)

func (p PrincipalID) String() string { return uuid.UUID(p).String() }

// MarshalJSON renders the principal as its canonical UUID string.
func (p PrincipalID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a principal from its UUID string form.
func (p *PrincipalID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*p = PrincipalID(u)
	return nil
}

// IsNil reports whether the principal is the null owner.
func (p PrincipalID) IsNil() bool { return uuid.UUID(p) == uuid.Nil }

// ParsePrincipalID parses and validates a principal UUID at trust boundaries.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParsePrincipalID(s string) (PrincipalID, error) {
	if s == "" {
		return PrincipalID{}, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return PrincipalID{}, dErrors.New(dErrors.CodeInvalidInput, "principal id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return PrincipalID{}, dErrors.New(dErrors.CodeInvalidInput, "principal id must not be the nil UUID")
	}
	return PrincipalID(parsed), nil
}

// RecordID identifies a character record. IDs come from the store's monotonic
// counter and are never reused, even after the record is burned.
type RecordID uint64

func (r RecordID) String() string { return strconv.FormatUint(uint64(r), 10) }

// ParseRecordID parses a decimal record identifier from a URL segment.
func ParseRecordID(s string) (RecordID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id is required")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must be an unsigned integer")
	}
	return RecordID(n), nil
}
