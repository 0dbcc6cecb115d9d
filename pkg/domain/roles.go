package domain

import dErrors "effigy/pkg/domain-errors"

// Role is a named permission group gating registry operations. Membership is
// managed by the role store; constants here are the only roles the registry
// consults.
type Role string

const (
	// RoleMinter may create new records.
	RoleMinter Role = "minter"
	// RolePauser may toggle the registry halt flag.
	RolePauser Role = "pauser"
	// RoleAdmin may update the base URI and manage role membership.
	RoleAdmin Role = "admin"
)

// ParseRole validates a role identifier at trust boundaries.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMinter, RolePauser, RoleAdmin:
		return Role(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+s)
}
