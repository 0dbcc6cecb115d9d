// Package pause provides the registry halt-flag capability. The flag is
// consulted by the transfer guard on every identity mutation; it is never
// silently bypassed.
package pause

import "context"

// Store holds the single halt flag. Implementations must read the current
// value on every Get: operations rejected while paused must succeed
// immediately after unpause.
type Store interface {
	// Get returns the current flag value.
	Get(ctx context.Context) (bool, error)
	// Set writes the flag value unconditionally.
	Set(ctx context.Context, paused bool) error
}
