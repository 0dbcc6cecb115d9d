package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"effigy/internal/audit"
	"effigy/internal/ledger"
	"effigy/internal/pause"
	"effigy/internal/registry/models"
	"effigy/internal/registry/service"
	"effigy/internal/registry/store"
	"effigy/internal/rolestore"
	id "effigy/pkg/domain"
	dErrors "effigy/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	svc      *service.Service
	metadata *store.InMemoryStore
	flags    *pause.InMemoryStore
	roles    *rolestore.InMemoryStore
	audit    *audit.InMemoryStore

	minter   id.PrincipalID
	pauser   id.PrincipalID
	admin    id.PrincipalID
	owner    id.PrincipalID
	stranger id.PrincipalID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.metadata = store.NewInMemory()
	s.flags = pause.NewInMemory()
	s.roles = rolestore.NewInMemory()
	s.audit = audit.NewInMemoryStore()
	lgr := ledger.NewInMemory(ledger.PauseGuard(s.flags))

	tx := service.NewSerialTx(service.Stores{
		Metadata: s.metadata,
		Ledger:   lgr,
		Flags:    s.flags,
	})
	s.svc = service.New(tx, s.metadata, lgr, s.flags, s.roles,
		service.WithAuditPublisher(audit.NewPublisher(s.audit)),
		service.WithBaseURI("https://records.example.com/effigies"),
	)

	s.minter = id.PrincipalID(uuid.New())
	s.pauser = id.PrincipalID(uuid.New())
	s.admin = id.PrincipalID(uuid.New())
	s.owner = id.PrincipalID(uuid.New())
	s.stranger = id.PrincipalID(uuid.New())
	s.Require().NoError(s.roles.Grant(s.ctx, id.RoleMinter, s.minter))
	s.Require().NoError(s.roles.Grant(s.ctx, id.RolePauser, s.pauser))
	s.Require().NoError(s.roles.Grant(s.ctx, id.RoleAdmin, s.admin))
}

func (s *ServiceSuite) mint(name string) *models.Record {
	record, err := s.svc.Mint(s.ctx, s.minter, service.MintRequest{
		Owner:      s.owner,
		Name:       name,
		Physical:   models.PhysicalMetadata{Height: 180, Weight: 80},
		Attributes: models.AttributesMetadata{Strength: 12, Agility: 9, Intelligence: 10},
	})
	s.Require().NoError(err)
	return record
}

func (s *ServiceSuite) TestMintAssignsSequentialIDs() {
	first := s.mint("alberich")
	second := s.mint("brunhild")
	s.Equal(first.ID+1, second.ID)
	s.Equal(s.owner, first.Owner)
}

func (s *ServiceSuite) TestMintRequiresMinterRole() {
	_, err := s.svc.Mint(s.ctx, s.stranger, service.MintRequest{Owner: s.owner, Name: "alberich"})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.GetRecord(s.ctx, 0)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestMintRejectsAnonymousCaller() {
	_, err := s.svc.Mint(s.ctx, id.NilPrincipal, service.MintRequest{Owner: s.owner, Name: "alberich"})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestMintValidatesName() {
	for _, name := range []string{"", "   ", "\x00\x00"} {
		_, err := s.svc.Mint(s.ctx, s.minter, service.MintRequest{Owner: s.owner, Name: name})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation), "name %q", name)
	}
}

func (s *ServiceSuite) TestMintRejectsTakenName() {
	s.mint("alberich")
	_, err := s.svc.Mint(s.ctx, s.minter, service.MintRequest{Owner: s.owner, Name: "alberich"})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRoleErrorPriorityOverPause() {
	s.Require().NoError(s.svc.Pause(s.ctx, s.pauser))

	// A non-minter mint while paused reports the role failure, not the pause.
	_, err := s.svc.Mint(s.ctx, s.stranger, service.MintRequest{Owner: s.owner, Name: "alberich"})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))

	// An invalid name while paused reports the validation failure.
	_, err = s.svc.Mint(s.ctx, s.minter, service.MintRequest{Owner: s.owner, Name: ""})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestPauseBlocksMintAndBurn() {
	record := s.mint("alberich")
	s.Require().NoError(s.svc.Pause(s.ctx, s.pauser))

	_, err := s.svc.Mint(s.ctx, s.minter, service.MintRequest{Owner: s.owner, Name: "brunhild"})
	s.Require().True(dErrors.HasCode(err, dErrors.CodePaused))

	err = s.svc.Burn(s.ctx, s.owner, record.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodePaused))

	// Rejected while paused, identical call succeeds after unpause with a
	// fresh identifier and no gap from the rejected attempt.
	s.Require().NoError(s.svc.Unpause(s.ctx, s.pauser))
	next := s.mint("brunhild")
	s.Equal(record.ID+1, next.ID)
	s.Require().NoError(s.svc.Burn(s.ctx, s.owner, record.ID))
}

func (s *ServiceSuite) TestPauseRequiresPauserRole() {
	err := s.svc.Pause(s.ctx, s.stranger)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestPauseWhilePausedFails() {
	s.Require().NoError(s.svc.Pause(s.ctx, s.pauser))
	err := s.svc.Pause(s.ctx, s.pauser)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	s.Require().NoError(s.svc.Unpause(s.ctx, s.pauser))
	err = s.svc.Unpause(s.ctx, s.pauser)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestBurnFreesNameButNotID() {
	record := s.mint("alberich")
	s.Require().NoError(s.svc.Burn(s.ctx, s.owner, record.ID))

	_, err := s.svc.GetRecord(s.ctx, record.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))

	reminted := s.mint("alberich")
	s.Equal(record.ID+1, reminted.ID)
}

func (s *ServiceSuite) TestBurnUnknownRecord() {
	err := s.svc.Burn(s.ctx, s.owner, id.RecordID(99))
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestBurnRequiresOwnershipOrApproval() {
	record := s.mint("alberich")

	err := s.svc.Burn(s.ctx, s.stranger, record.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))

	// Per-record approval lets the operator burn.
	s.Require().NoError(s.svc.Approve(s.ctx, s.owner, s.stranger, record.ID))
	s.Require().NoError(s.svc.Burn(s.ctx, s.stranger, record.ID))
}

func (s *ServiceSuite) TestTransferMovesOwnership() {
	record := s.mint("alberich")
	s.Require().NoError(s.svc.Transfer(s.ctx, s.owner, s.owner, s.stranger, record.ID))

	owner, err := s.svc.OwnerOf(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(s.stranger, owner)
}

func (s *ServiceSuite) TestTransferBlockedWhilePaused() {
	record := s.mint("alberich")
	s.Require().NoError(s.svc.Pause(s.ctx, s.pauser))

	err := s.svc.Transfer(s.ctx, s.owner, s.owner, s.stranger, record.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodePaused))

	owner, err := s.svc.OwnerOf(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(s.owner, owner)
}

func (s *ServiceSuite) TestTransferClearsApproval() {
	record := s.mint("alberich")
	approved := id.PrincipalID(uuid.New())
	s.Require().NoError(s.svc.Approve(s.ctx, s.owner, approved, record.ID))
	s.Require().NoError(s.svc.Transfer(s.ctx, s.owner, s.owner, s.stranger, record.ID))

	// The stale approval from the previous owner no longer authorizes moves.
	err := s.svc.Transfer(s.ctx, approved, s.stranger, s.owner, record.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestOperatorApproval() {
	record := s.mint("alberich")
	operator := id.PrincipalID(uuid.New())
	s.Require().NoError(s.svc.SetApprovalForAll(s.ctx, s.owner, operator, true))
	s.Require().NoError(s.svc.Transfer(s.ctx, operator, s.owner, s.stranger, record.ID))

	s.Require().NoError(s.svc.SetApprovalForAll(s.ctx, s.owner, operator, false))
	later := s.mint("brunhild")
	err := s.svc.Transfer(s.ctx, operator, s.owner, s.stranger, later.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestApproveRequiresOwner() {
	record := s.mint("alberich")
	err := s.svc.Approve(s.ctx, s.stranger, s.stranger, record.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestSetBaseURI() {
	err := s.svc.SetBaseURI(s.ctx, s.stranger, "https://other.example.com/")
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Require().NoError(s.svc.SetBaseURI(s.ctx, s.admin, "https://other.example.com/"))

	record := s.mint("alberich")
	uri, err := s.svc.RecordURI(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal("https://other.example.com/"+record.ID.String(), uri)
}

func (s *ServiceSuite) TestRecordURIUnknownRecord() {
	_, err := s.svc.RecordURI(s.ctx, id.RecordID(7))
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestListRecordsFillsOwners() {
	s.mint("alberich")
	second := s.mint("brunhild")
	s.Require().NoError(s.svc.Transfer(s.ctx, s.owner, s.owner, s.stranger, second.ID))

	records, err := s.svc.ListRecords(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(s.owner, records[0].Owner)
	s.Equal(s.stranger, records[1].Owner)
}

func (s *ServiceSuite) TestAuditTrail() {
	record := s.mint("alberich")
	s.Require().NoError(s.svc.Burn(s.ctx, s.owner, record.ID))
	s.Require().NoError(s.svc.Pause(s.ctx, s.pauser))

	events := s.audit.All()
	s.Require().Len(events, 3)
	s.Equal(string(audit.EventRecordMinted), events[0].Action)
	s.Require().NotNil(events[0].RecordID)
	s.Equal(uint64(record.ID), *events[0].RecordID)
	s.Equal(string(audit.EventRecordBurned), events[1].Action)
	s.Equal(string(audit.EventRegistryPaused), events[2].Action)

	// Failed operations leave no audit trace.
	_, err := s.svc.Mint(s.ctx, s.stranger, service.MintRequest{Owner: s.owner, Name: "brunhild"})
	s.Require().Error(err)
	s.Len(s.audit.All(), 3)
}
