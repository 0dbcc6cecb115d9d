package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"effigy/internal/audit"
	"effigy/internal/ledger"
	"effigy/internal/pause"
	"effigy/internal/registry/service"
	"effigy/internal/registry/service/mocks"
	"effigy/internal/registry/store"
	id "effigy/pkg/domain"
	dErrors "effigy/pkg/domain-errors"
)

func newMockedService(t *testing.T, roles service.RoleChecker, publisher service.AuditPublisher) *service.Service {
	t.Helper()
	metadata := store.NewInMemory()
	flags := pause.NewInMemory()
	lgr := ledger.NewInMemory(ledger.PauseGuard(flags))
	tx := service.NewSerialTx(service.Stores{Metadata: metadata, Ledger: lgr, Flags: flags})
	return service.New(tx, metadata, lgr, flags, roles,
		service.WithAuditPublisher(publisher))
}

func TestMintRoleStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	roles := mocks.NewMockRoleChecker(ctrl)
	caller := id.PrincipalID(uuid.New())

	roles.EXPECT().
		HasRole(gomock.Any(), id.RoleMinter, caller).
		Return(false, errors.New("connection refused"))

	svc := newMockedService(t, roles, nil)
	_, err := svc.Mint(context.Background(), caller, service.MintRequest{
		Owner: id.PrincipalID(uuid.New()),
		Name:  "alberich",
	})
	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestMintEmitsAuditEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	roles := mocks.NewMockRoleChecker(ctrl)
	publisher := mocks.NewMockAuditPublisher(ctrl)
	caller := id.PrincipalID(uuid.New())
	owner := id.PrincipalID(uuid.New())

	roles.EXPECT().
		HasRole(gomock.Any(), id.RoleMinter, caller).
		Return(true, nil)

	var captured audit.Event
	publisher.EXPECT().
		Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			captured = event
			return nil
		})

	svc := newMockedService(t, roles, publisher)
	record, err := svc.Mint(context.Background(), caller, service.MintRequest{
		Owner: owner,
		Name:  "alberich",
	})
	require.NoError(t, err)

	assert.Equal(t, string(audit.EventRecordMinted), captured.Action)
	assert.Equal(t, owner.String(), captured.Subject)
	require.NotNil(t, captured.RecordID)
	assert.Equal(t, uint64(record.ID), *captured.RecordID)
}

func TestAuditPublisherFailureDoesNotFailMint(t *testing.T) {
	ctrl := gomock.NewController(t)
	roles := mocks.NewMockRoleChecker(ctrl)
	publisher := mocks.NewMockAuditPublisher(ctrl)
	caller := id.PrincipalID(uuid.New())

	roles.EXPECT().
		HasRole(gomock.Any(), id.RoleMinter, caller).
		Return(true, nil)
	publisher.EXPECT().
		Emit(gomock.Any(), gomock.Any()).
		Return(errors.New("sink unavailable"))

	svc := newMockedService(t, roles, publisher)
	_, err := svc.Mint(context.Background(), caller, service.MintRequest{
		Owner: id.PrincipalID(uuid.New()),
		Name:  "alberich",
	})
	require.NoError(t, err)
}
