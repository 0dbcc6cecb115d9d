package main

import (
	"context"
	"database/sql"
	"time"

	"effigy/internal/ledger"
	"effigy/internal/pause"
	"effigy/internal/registry/service"
	"effigy/internal/registry/store"
	dErrors "effigy/pkg/domain-errors"
)

const defaultRegistryTxTimeout = 5 * time.Second

// registryPostgresTx binds each mutation to a serializable database
// transaction. The halt flag lives outside the database (Redis or memory) and
// is shared across the transaction boundary unchanged.
type registryPostgresTx struct {
	db      *sql.DB
	flags   pause.Store
	guard   ledger.Guard
	timeout time.Duration
}

func newRegistryPostgresTx(db *sql.DB, flags pause.Store, guard ledger.Guard) *registryPostgresTx {
	return &registryPostgresTx{db: db, flags: flags, guard: guard}
}

func (t *registryPostgresTx) RunInTx(ctx context.Context, fn func(s service.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRegistryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = fn(service.Stores{
		Metadata: store.NewPostgres(tx),
		Ledger:   ledger.NewPostgres(tx, t.guard),
		Flags:    t.flags,
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}
