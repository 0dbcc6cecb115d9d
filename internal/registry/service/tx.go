package service

import (
	"context"
	"sync"
	"time"

	"effigy/internal/ledger"
	"effigy/internal/pause"
	"effigy/internal/registry/store"
	dErrors "effigy/pkg/domain-errors"
)

// Stores bundles the state surfaces that a mutating operation touches. Every
// mutation commits against all of them as one logical unit.
type Stores struct {
	Metadata store.MetadataStore
	Ledger   ledger.Ledger
	Flags    pause.Store
}

// Tx provides the serialization boundary for registry mutations.
// Implementations may wrap a database transaction or, in-memory, a single
// lock. No two mutations run concurrently; reads outside the boundary always
// observe a fully-applied state.
type Tx interface {
	RunInTx(ctx context.Context, fn func(s Stores) error) error
}

// defaultTxTimeout is the maximum duration for a registry mutation.
const defaultTxTimeout = 5 * time.Second

// serialTx serializes every mutation behind one mutex. Unlike a sharded
// scheme, mint, burn, transfer, pause toggles, and URI updates all contend on
// the same lock: the registry state is global (one counter, one name set, one
// flag), so per-principal sharding would break total ordering.
type serialTx struct {
	mu      sync.Mutex
	stores  Stores
	timeout time.Duration
}

// NewSerialTx builds the in-memory transaction boundary over the given
// stores.
func NewSerialTx(stores Stores) Tx {
	return &serialTx{stores: stores}
}

func (t *serialTx) RunInTx(ctx context.Context, fn func(s Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(t.stores)
}
