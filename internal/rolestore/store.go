// Package rolestore provides the role-membership capability consumed by the
// registry: grant, revoke, and hasRole over (role, principal) pairs.
package rolestore

import (
	"context"

	id "effigy/pkg/domain"
)

// Store is interface-driven to keep the registry testable and to allow
// swapping in-memory and Postgres persistence without rewiring business code.
type Store interface {
	// Grant adds principal to role. Granting an already-held role is a no-op.
	Grant(ctx context.Context, role id.Role, principal id.PrincipalID) error
	// Revoke removes principal from role. Returns sentinel.ErrNotFound when
	// the binding does not exist.
	Revoke(ctx context.Context, role id.Role, principal id.PrincipalID) error
	// HasRole reports current membership. No caching anywhere above this
	// call: revocations take effect on the next operation.
	HasRole(ctx context.Context, role id.Role, principal id.PrincipalID) (bool, error)
	// ListPrincipals returns current members of a role.
	ListPrincipals(ctx context.Context, role id.Role) ([]id.PrincipalID, error)
}
