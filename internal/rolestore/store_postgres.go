package rolestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

// PostgresStore persists role bindings in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed role store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the role_bindings table. Applied at startup and
// by the integration test harness.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS role_bindings (
			role TEXT NOT NULL,
			principal_id UUID NOT NULL,
			granted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (role, principal_id)
		)
	`
}

func (s *PostgresStore) Grant(ctx context.Context, role id.Role, principal id.PrincipalID) error {
	query := `
		INSERT INTO role_bindings (role, principal_id)
		VALUES ($1, $2)
		ON CONFLICT (role, principal_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, string(role), uuid.UUID(principal))
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

func (s *PostgresStore) Revoke(ctx context.Context, role id.Role, principal id.PrincipalID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM role_bindings WHERE role = $1 AND principal_id = $2`,
		string(role), uuid.UUID(principal))
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) HasRole(ctx context.Context, role id.Role, principal id.PrincipalID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_bindings WHERE role = $1 AND principal_id = $2)`,
		string(role), uuid.UUID(principal)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListPrincipals(ctx context.Context, role id.Role) ([]id.PrincipalID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT principal_id FROM role_bindings WHERE role = $1 ORDER BY granted_at`,
		string(role))
	if err != nil {
		return nil, fmt.Errorf("list role principals: %w", err)
	}
	defer rows.Close()

	var principals []id.PrincipalID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan role principal: %w", err)
		}
		principals = append(principals, id.PrincipalID(raw))
	}
	return principals, rows.Err()
}
