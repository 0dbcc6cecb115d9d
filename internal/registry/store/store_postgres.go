package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"effigy/internal/registry/models"
	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

// DBTX abstracts *sql.DB and *sql.Tx so one implementation serves both the
// pool and a transaction-bound store.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const uniqueViolation = "23505"

// PostgresStore persists the metadata tables in PostgreSQL. The counter is a
// dedicated single-row table updated with RETURNING so identifiers survive
// restarts and are never reissued, even after burns.
type PostgresStore struct {
	db DBTX
}

// NewPostgres constructs a PostgreSQL-backed metadata store. Pass a *sql.Tx
// to bind the store to an open transaction.
func NewPostgres(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the metadata tables, the name reservation set,
// and the counter row.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS record_base (
			record_id BIGINT PRIMARY KEY,
			name BYTEA NOT NULL,
			minted_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS record_physical (
			record_id BIGINT PRIMARY KEY,
			payload JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS record_attributes (
			record_id BIGINT PRIMARY KEY,
			payload JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS name_reservations (
			name BYTEA PRIMARY KEY,
			record_id BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS record_counter (
			singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			next_id BIGINT NOT NULL
		);
		INSERT INTO record_counter (singleton, next_id)
		VALUES (TRUE, 0)
		ON CONFLICT (singleton) DO NOTHING
	`
}

func (s *PostgresStore) NextID(ctx context.Context) (id.RecordID, error) {
	var allocated int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE record_counter
		SET next_id = next_id + 1
		WHERE singleton
		RETURNING next_id - 1
	`).Scan(&allocated)
	if err != nil {
		return 0, fmt.Errorf("allocate record id: %w", err)
	}
	return id.RecordID(allocated), nil
}

func (s *PostgresStore) NameInUse(ctx context.Context, name id.Name) (bool, error) {
	var used bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM name_reservations WHERE name = $1)`,
		name[:]).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check name reservation: %w", err)
	}
	return used, nil
}

func (s *PostgresStore) Insert(ctx context.Context, record *models.Record) error {
	physical, err := json.Marshal(record.Physical)
	if err != nil {
		return fmt.Errorf("encode physical metadata: %w", err)
	}
	attributes, err := json.Marshal(record.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO name_reservations (name, record_id) VALUES ($1, $2)`,
		record.Base.Name[:], int64(record.ID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("reserve name: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO record_base (record_id, name, minted_at) VALUES ($1, $2, $3)`,
		int64(record.ID), record.Base.Name[:], record.MintedAt)
	if err != nil {
		return fmt.Errorf("insert base metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO record_physical (record_id, payload) VALUES ($1, $2)`,
		int64(record.ID), physical)
	if err != nil {
		return fmt.Errorf("insert physical metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO record_attributes (record_id, payload) VALUES ($1, $2)`,
		int64(record.ID), attributes)
	if err != nil {
		return fmt.Errorf("insert attributes metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, recordID id.RecordID) error {
	var name []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM record_base WHERE record_id = $1`, int64(recordID)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find record name: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM name_reservations WHERE name = $1`, name); err != nil {
		return fmt.Errorf("release name: %w", err)
	}
	for _, query := range []string{
		`DELETE FROM record_base WHERE record_id = $1`,
		`DELETE FROM record_physical WHERE record_id = $1`,
		`DELETE FROM record_attributes WHERE record_id = $1`,
	} {
		if _, err := s.db.ExecContext(ctx, query, int64(recordID)); err != nil {
			return fmt.Errorf("delete record metadata: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	record := &models.Record{ID: recordID}
	var name []byte
	var physical, attributes []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT b.name, b.minted_at, p.payload, a.payload
		FROM record_base b
		JOIN record_physical p USING (record_id)
		JOIN record_attributes a USING (record_id)
		WHERE b.record_id = $1
	`, int64(recordID)).Scan(&name, &record.MintedAt, &physical, &attributes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record metadata: %w", err)
	}
	copy(record.Base.Name[:], name)
	if err := json.Unmarshal(physical, &record.Physical); err != nil {
		return nil, fmt.Errorf("decode physical metadata: %w", err)
	}
	if err := json.Unmarshal(attributes, &record.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes metadata: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.record_id, b.name, b.minted_at, p.payload, a.payload
		FROM record_base b
		JOIN record_physical p USING (record_id)
		JOIN record_attributes a USING (record_id)
		ORDER BY b.record_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		record := &models.Record{}
		var recordID int64
		var name, physical, attributes []byte
		if err := rows.Scan(&recordID, &name, &record.MintedAt, &physical, &attributes); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		record.ID = id.RecordID(recordID)
		copy(record.Base.Name[:], name)
		if err := json.Unmarshal(physical, &record.Physical); err != nil {
			return nil, fmt.Errorf("decode physical metadata: %w", err)
		}
		if err := json.Unmarshal(attributes, &record.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes metadata: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
