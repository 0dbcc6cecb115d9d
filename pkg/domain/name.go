package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	dErrors "effigy/pkg/domain-errors"
)

// NameSize is the fixed width of a character name identifier.
const NameSize = 32

// Name is a fixed-size character name. The zero value is the sentinel "no
// name" and is never a valid name for a live record.
type Name [NameSize]byte

// ParseName builds a Name from a UTF-8 string, right-padded with zero bytes.
// Rejects empty input, input over NameSize bytes, input containing NUL bytes
// (the padding would make "a" and "a\x00" indistinguishable). The NUL check
// also rules out the all-zero sentinel.
func ParseName(s string) (Name, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Name{}, dErrors.New(dErrors.CodeValidation, "name must not be empty")
	}
	if len(trimmed) > NameSize {
		return Name{}, dErrors.New(dErrors.CodeValidation, "name must be at most 32 bytes")
	}
	if strings.ContainsRune(trimmed, 0) {
		return Name{}, dErrors.New(dErrors.CodeValidation, "name must not contain NUL bytes")
	}
	var n Name
	copy(n[:], trimmed)
	return n, nil
}

// IsZero reports whether the name is the all-zero sentinel.
func (n Name) IsZero() bool { return n == Name{} }

// String renders the name with trailing zero padding stripped.
func (n Name) String() string {
	return string(bytes.TrimRight(n[:], "\x00"))
}

// MarshalJSON renders the name as its trimmed string form.
func (n Name) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON parses a name from its string form, enforcing the same
// invariants as ParseName.
func (n *Name) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseName(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
