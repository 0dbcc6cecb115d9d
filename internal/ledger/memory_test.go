package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"effigy/internal/pause"
	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

// Ledger invariants (guard choke point, approval clearing, owner checks) are
// validated here; the registry service relies on them for burn authorization.
type InMemoryLedgerSuite struct {
	suite.Suite
	flags  *pause.InMemoryStore
	ledger *InMemoryLedger
}

func (s *InMemoryLedgerSuite) SetupTest() {
	s.flags = pause.NewInMemory()
	s.ledger = NewInMemory(PauseGuard(s.flags))
}

func TestInMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLedgerSuite))
}

func (s *InMemoryLedgerSuite) TestCreateDestroy() {
	ctx := context.Background()
	owner := id.PrincipalID(uuid.New())

	s.Run("create registers a live record", func() {
		s.Require().NoError(s.ledger.Create(ctx, owner, 1))
		got, err := s.ledger.OwnerOf(ctx, 1)
		s.Require().NoError(err)
		s.Equal(owner, got)
	})

	s.Run("create rejects an already-live identifier", func() {
		s.Require().ErrorIs(s.ledger.Create(ctx, owner, 1), sentinel.ErrConflict)
	})

	s.Run("destroy removes the record and its approval", func() {
		approved := id.PrincipalID(uuid.New())
		s.Require().NoError(s.ledger.Approve(ctx, approved, 1))
		s.Require().NoError(s.ledger.Destroy(ctx, 1))

		_, err := s.ledger.OwnerOf(ctx, 1)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("destroy of a dead record returns ErrNotFound", func() {
		s.Require().ErrorIs(s.ledger.Destroy(ctx, 1), sentinel.ErrNotFound)
	})
}

func (s *InMemoryLedgerSuite) TestGuardBlocksMutations() {
	ctx := context.Background()
	owner := id.PrincipalID(uuid.New())
	other := id.PrincipalID(uuid.New())

	s.Require().NoError(s.ledger.Create(ctx, owner, 7))
	s.Require().NoError(s.flags.Set(ctx, true))

	s.Run("create is blocked while paused", func() {
		s.Require().ErrorIs(s.ledger.Create(ctx, owner, 8), sentinel.ErrPaused)
		exists, err := s.ledger.Exists(ctx, 8)
		s.Require().NoError(err)
		s.False(exists)
	})

	s.Run("destroy is blocked while paused", func() {
		s.Require().ErrorIs(s.ledger.Destroy(ctx, 7), sentinel.ErrPaused)
		exists, err := s.ledger.Exists(ctx, 7)
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("transfer is blocked while paused", func() {
		s.Require().ErrorIs(s.ledger.Transfer(ctx, owner, other, 7), sentinel.ErrPaused)
		got, err := s.ledger.OwnerOf(ctx, 7)
		s.Require().NoError(err)
		s.Equal(owner, got)
	})

	s.Run("mutations succeed after unpause", func() {
		s.Require().NoError(s.flags.Set(ctx, false))
		s.Require().NoError(s.ledger.Transfer(ctx, owner, other, 7))
		got, err := s.ledger.OwnerOf(ctx, 7)
		s.Require().NoError(err)
		s.Equal(other, got)
	})
}

func (s *InMemoryLedgerSuite) TestApprovals() {
	ctx := context.Background()
	owner := id.PrincipalID(uuid.New())
	approved := id.PrincipalID(uuid.New())
	operator := id.PrincipalID(uuid.New())
	stranger := id.PrincipalID(uuid.New())

	s.Require().NoError(s.ledger.Create(ctx, owner, 3))

	s.Run("owner is always approved", func() {
		ok, err := s.ledger.IsApprovedOrOwner(ctx, owner, 3)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("stranger is not approved", func() {
		ok, err := s.ledger.IsApprovedOrOwner(ctx, stranger, 3)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("per-record approval grants access", func() {
		s.Require().NoError(s.ledger.Approve(ctx, approved, 3))
		ok, err := s.ledger.IsApprovedOrOwner(ctx, approved, 3)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("transfer clears the per-record approval", func() {
		s.Require().NoError(s.ledger.Transfer(ctx, owner, stranger, 3))
		ok, err := s.ledger.IsApprovedOrOwner(ctx, approved, 3)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("operator approval covers all records of the owner", func() {
		s.Require().NoError(s.ledger.SetApprovalForAll(ctx, stranger, operator, true))
		ok, err := s.ledger.IsApprovedOrOwner(ctx, operator, 3)
		s.Require().NoError(err)
		s.True(ok)

		s.Require().NoError(s.ledger.SetApprovalForAll(ctx, stranger, operator, false))
		ok, err = s.ledger.IsApprovedOrOwner(ctx, operator, 3)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("approval lookup on a dead record returns ErrNotFound", func() {
		_, err := s.ledger.IsApprovedOrOwner(ctx, owner, 99)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
