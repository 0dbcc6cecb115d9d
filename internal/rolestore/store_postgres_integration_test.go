//go:build integration

package rolestore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"effigy/internal/rolestore"
	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
	"effigy/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *rolestore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), rolestore.Schema())
	s.store = rolestore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "role_bindings"))
}

func (s *PostgresStoreSuite) TestGrantRevokeRoundTrip() {
	ctx := context.Background()
	principal := id.PrincipalID(uuid.New())

	held, err := s.store.HasRole(ctx, id.RoleMinter, principal)
	s.Require().NoError(err)
	s.False(held)

	s.Require().NoError(s.store.Grant(ctx, id.RoleMinter, principal))
	// Idempotent on conflict.
	s.Require().NoError(s.store.Grant(ctx, id.RoleMinter, principal))

	held, err = s.store.HasRole(ctx, id.RoleMinter, principal)
	s.Require().NoError(err)
	s.True(held)

	members, err := s.store.ListPrincipals(ctx, id.RoleMinter)
	s.Require().NoError(err)
	s.Len(members, 1)

	s.Require().NoError(s.store.Revoke(ctx, id.RoleMinter, principal))
	held, err = s.store.HasRole(ctx, id.RoleMinter, principal)
	s.Require().NoError(err)
	s.False(held)
}

func (s *PostgresStoreSuite) TestRevokeMissingBinding() {
	err := s.store.Revoke(context.Background(), id.RolePauser, id.PrincipalID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
