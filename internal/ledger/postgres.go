package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

// DBTX abstracts *sql.DB and *sql.Tx so one implementation serves both the
// pool and a transaction-bound store.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const uniqueViolation = "23505"

// PostgresLedger persists ownership state in PostgreSQL.
type PostgresLedger struct {
	db    DBTX
	guard Guard
}

// NewPostgres constructs a PostgreSQL-backed ledger. Pass a *sql.Tx to bind
// the ledger to an open transaction.
func NewPostgres(db DBTX, guard Guard) *PostgresLedger {
	return &PostgresLedger{db: db, guard: guard}
}

// Schema returns the DDL for the ownership tables.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS record_owners (
			record_id BIGINT PRIMARY KEY,
			owner_id UUID NOT NULL,
			approved_id UUID
		);
		CREATE TABLE IF NOT EXISTS operator_approvals (
			owner_id UUID NOT NULL,
			operator_id UUID NOT NULL,
			PRIMARY KEY (owner_id, operator_id)
		)
	`
}

func (l *PostgresLedger) Exists(ctx context.Context, recordID id.RecordID) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM record_owners WHERE record_id = $1)`,
		int64(recordID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check record exists: %w", err)
	}
	return exists, nil
}

func (l *PostgresLedger) OwnerOf(ctx context.Context, recordID id.RecordID) (id.PrincipalID, error) {
	var owner uuid.UUID
	err := l.db.QueryRowContext(ctx,
		`SELECT owner_id FROM record_owners WHERE record_id = $1`,
		int64(recordID)).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return id.NilPrincipal, sentinel.ErrNotFound
	}
	if err != nil {
		return id.NilPrincipal, fmt.Errorf("find record owner: %w", err)
	}
	return id.PrincipalID(owner), nil
}

func (l *PostgresLedger) IsApprovedOrOwner(ctx context.Context, principal id.PrincipalID, recordID id.RecordID) (bool, error) {
	var owner uuid.UUID
	var approved sql.Null[uuid.UUID]
	err := l.db.QueryRowContext(ctx,
		`SELECT owner_id, approved_id FROM record_owners WHERE record_id = $1`,
		int64(recordID)).Scan(&owner, &approved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, sentinel.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("find record approval state: %w", err)
	}
	if id.PrincipalID(owner) == principal {
		return true, nil
	}
	if approved.Valid && id.PrincipalID(approved.V) == principal {
		return true, nil
	}
	var operator bool
	err = l.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM operator_approvals WHERE owner_id = $1 AND operator_id = $2)`,
		owner, uuid.UUID(principal)).Scan(&operator)
	if err != nil {
		return false, fmt.Errorf("check operator approval: %w", err)
	}
	return operator, nil
}

func (l *PostgresLedger) Create(ctx context.Context, owner id.PrincipalID, recordID id.RecordID) error {
	if err := l.guard(ctx, id.NilPrincipal, owner, recordID); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO record_owners (record_id, owner_id) VALUES ($1, $2)`,
		int64(recordID), uuid.UUID(owner))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create record owner: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Destroy(ctx context.Context, recordID id.RecordID) error {
	owner, err := l.OwnerOf(ctx, recordID)
	if err != nil {
		return err
	}
	if err := l.guard(ctx, owner, id.NilPrincipal, recordID); err != nil {
		return err
	}
	result, err := l.db.ExecContext(ctx,
		`DELETE FROM record_owners WHERE record_id = $1`, int64(recordID))
	if err != nil {
		return fmt.Errorf("destroy record owner: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("destroy record owner: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (l *PostgresLedger) Transfer(ctx context.Context, from, to id.PrincipalID, recordID id.RecordID) error {
	owner, err := l.OwnerOf(ctx, recordID)
	if err != nil {
		return err
	}
	if owner != from {
		return sentinel.ErrInvalidState
	}
	if err := l.guard(ctx, from, to, recordID); err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`UPDATE record_owners SET owner_id = $2, approved_id = NULL WHERE record_id = $1 AND owner_id = $3`,
		int64(recordID), uuid.UUID(to), uuid.UUID(from))
	if err != nil {
		return fmt.Errorf("transfer record owner: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Approve(ctx context.Context, operator id.PrincipalID, recordID id.RecordID) error {
	var approved any
	if !operator.IsNil() {
		approved = uuid.UUID(operator)
	}
	result, err := l.db.ExecContext(ctx,
		`UPDATE record_owners SET approved_id = $2 WHERE record_id = $1`,
		int64(recordID), approved)
	if err != nil {
		return fmt.Errorf("approve record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (l *PostgresLedger) SetApprovalForAll(ctx context.Context, owner, operator id.PrincipalID, approved bool) error {
	if approved {
		_, err := l.db.ExecContext(ctx, `
			INSERT INTO operator_approvals (owner_id, operator_id)
			VALUES ($1, $2)
			ON CONFLICT (owner_id, operator_id) DO NOTHING
		`, uuid.UUID(owner), uuid.UUID(operator))
		if err != nil {
			return fmt.Errorf("set operator approval: %w", err)
		}
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM operator_approvals WHERE owner_id = $1 AND operator_id = $2`,
		uuid.UUID(owner), uuid.UUID(operator))
	if err != nil {
		return fmt.Errorf("clear operator approval: %w", err)
	}
	return nil
}
