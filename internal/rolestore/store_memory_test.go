package rolestore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

// Role store invariants (grant idempotency, revoke-takes-effect, ErrNotFound)
// are validated here to protect service gating behavior.
type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) TestGrantAndCheck() {
	principal := id.PrincipalID(uuid.New())

	s.Run("membership is false before grant", func() {
		held, err := s.store.HasRole(context.Background(), id.RoleMinter, principal)
		s.Require().NoError(err)
		s.False(held)
	})

	s.Run("membership is true after grant", func() {
		s.Require().NoError(s.store.Grant(context.Background(), id.RoleMinter, principal))
		held, err := s.store.HasRole(context.Background(), id.RoleMinter, principal)
		s.Require().NoError(err)
		s.True(held)
	})

	s.Run("grant is scoped to the role", func() {
		held, err := s.store.HasRole(context.Background(), id.RolePauser, principal)
		s.Require().NoError(err)
		s.False(held)
	})

	s.Run("double grant is a no-op", func() {
		s.Require().NoError(s.store.Grant(context.Background(), id.RoleMinter, principal))
		members, err := s.store.ListPrincipals(context.Background(), id.RoleMinter)
		s.Require().NoError(err)
		s.Len(members, 1)
	})
}

func (s *InMemoryStoreSuite) TestRevoke() {
	principal := id.PrincipalID(uuid.New())

	s.Run("revoking an unheld role returns ErrNotFound", func() {
		err := s.store.Revoke(context.Background(), id.RolePauser, principal)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("revoke removes membership", func() {
		s.Require().NoError(s.store.Grant(context.Background(), id.RolePauser, principal))
		s.Require().NoError(s.store.Revoke(context.Background(), id.RolePauser, principal))

		held, err := s.store.HasRole(context.Background(), id.RolePauser, principal)
		s.Require().NoError(err)
		s.False(held)
	})
}
