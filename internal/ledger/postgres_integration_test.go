//go:build integration

package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"effigy/internal/ledger"
	"effigy/internal/pause"
	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
	"effigy/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	flags    *pause.InMemoryStore
	ledger   *ledger.PostgresLedger
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), ledger.Schema())
	s.flags = pause.NewInMemory()
	s.ledger = ledger.NewPostgres(s.postgres.DB, ledger.PauseGuard(s.flags))
}

func (s *PostgresLedgerSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.flags.Set(ctx, false))
	s.Require().NoError(s.postgres.TruncateTables(ctx, "record_owners", "operator_approvals"))
}

func (s *PostgresLedgerSuite) TestCreateDestroyRoundTrip() {
	ctx := context.Background()
	owner := id.PrincipalID(uuid.New())

	s.Require().NoError(s.ledger.Create(ctx, owner, 0))
	s.Require().ErrorIs(s.ledger.Create(ctx, owner, 0), sentinel.ErrConflict)

	got, err := s.ledger.OwnerOf(ctx, 0)
	s.Require().NoError(err)
	s.Equal(owner, got)

	s.Require().NoError(s.ledger.Destroy(ctx, 0))
	_, err = s.ledger.OwnerOf(ctx, 0)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLedgerSuite) TestGuardBlocksMutationsWhilePaused() {
	ctx := context.Background()
	owner := id.PrincipalID(uuid.New())
	other := id.PrincipalID(uuid.New())
	s.Require().NoError(s.ledger.Create(ctx, owner, 0))

	s.Require().NoError(s.flags.Set(ctx, true))
	s.Require().ErrorIs(s.ledger.Create(ctx, owner, 1), sentinel.ErrPaused)
	s.Require().ErrorIs(s.ledger.Destroy(ctx, 0), sentinel.ErrPaused)
	s.Require().ErrorIs(s.ledger.Transfer(ctx, owner, other, 0), sentinel.ErrPaused)

	got, err := s.ledger.OwnerOf(ctx, 0)
	s.Require().NoError(err)
	s.Equal(owner, got)

	s.Require().NoError(s.flags.Set(ctx, false))
	s.Require().NoError(s.ledger.Transfer(ctx, owner, other, 0))
}

func (s *PostgresLedgerSuite) TestApprovalLifecycle() {
	ctx := context.Background()
	owner := id.PrincipalID(uuid.New())
	operator := id.PrincipalID(uuid.New())
	stranger := id.PrincipalID(uuid.New())
	s.Require().NoError(s.ledger.Create(ctx, owner, 0))

	allowed, err := s.ledger.IsApprovedOrOwner(ctx, stranger, 0)
	s.Require().NoError(err)
	s.False(allowed)

	s.Require().NoError(s.ledger.Approve(ctx, operator, 0))
	allowed, err = s.ledger.IsApprovedOrOwner(ctx, operator, 0)
	s.Require().NoError(err)
	s.True(allowed)

	// Transfer clears the per-record approval.
	s.Require().NoError(s.ledger.Transfer(ctx, owner, stranger, 0))
	allowed, err = s.ledger.IsApprovedOrOwner(ctx, operator, 0)
	s.Require().NoError(err)
	s.False(allowed)
}

func (s *PostgresLedgerSuite) TestOperatorApproval() {
	ctx := context.Background()
	owner := id.PrincipalID(uuid.New())
	operator := id.PrincipalID(uuid.New())
	s.Require().NoError(s.ledger.Create(ctx, owner, 0))
	s.Require().NoError(s.ledger.Create(ctx, owner, 1))

	s.Require().NoError(s.ledger.SetApprovalForAll(ctx, owner, operator, true))
	for _, recordID := range []id.RecordID{0, 1} {
		allowed, err := s.ledger.IsApprovedOrOwner(ctx, operator, recordID)
		s.Require().NoError(err)
		s.True(allowed)
	}

	s.Require().NoError(s.ledger.SetApprovalForAll(ctx, owner, operator, false))
	allowed, err := s.ledger.IsApprovedOrOwner(ctx, operator, 0)
	s.Require().NoError(err)
	s.False(allowed)
}
