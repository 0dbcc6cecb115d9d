// Package service contains the lifecycle controller: mint, burn, transfer,
// pause control, and base-URI management, with role gating and all-or-nothing
// failure semantics.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks RoleChecker,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"effigy/internal/audit"
	"effigy/internal/ledger"
	"effigy/internal/pause"
	"effigy/internal/platform/metrics"
	"effigy/internal/platform/middleware"
	"effigy/internal/registry/models"
	"effigy/internal/registry/store"
	"effigy/pkg/attrs"
	id "effigy/pkg/domain"
	dErrors "effigy/pkg/domain-errors"
	"effigy/pkg/platform/sentinel"
)

// RoleChecker answers current role membership. No caching: a revocation takes
// effect on the caller's next operation.
type RoleChecker interface {
	HasRole(ctx context.Context, role id.Role, principal id.PrincipalID) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates the record lifecycle. Every mutation runs inside the
// transaction boundary; preconditions are checked in a fixed order so that
// role and validation errors take priority over the generic pause error.
type Service struct {
	tx       Tx
	metadata store.MetadataStore
	ledger   ledger.Ledger
	flags    pause.Store
	roles    RoleChecker

	baseMu  sync.RWMutex
	baseURI string

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBaseURI seeds the URI prefix used to present record identifiers.
func WithBaseURI(uri string) Option {
	return func(s *Service) {
		s.baseURI = uri
	}
}

// New constructs a Service. The store, ledger, and flags arguments are the
// read-side views; tx binds their mutation-side counterparts.
func New(tx Tx, metadata store.MetadataStore, lgr ledger.Ledger, flags pause.Store, roles RoleChecker, opts ...Option) *Service {
	s := &Service{
		tx:       tx,
		metadata: metadata,
		ledger:   lgr,
		flags:    flags,
		roles:    roles,
		tracer:   otel.Tracer("effigy/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// startSpan opens a span for a mutating operation. With no provider
// registered this is a no-op.
func (s *Service) startSpan(ctx context.Context, name string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attributes...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// MintRequest carries the three metadata blocks for a new record.
type MintRequest struct {
	Owner      id.PrincipalID
	Name       string
	Physical   models.PhysicalMetadata
	Attributes models.AttributesMetadata
}

// Mint creates a record owned by req.Owner. Precondition order: minter role,
// name validity, name uniqueness, halt flag. A failed mint never advances the
// identifier counter.
func (s *Service) Mint(ctx context.Context, caller id.PrincipalID, req MintRequest) (record *models.Record, err error) {
	ctx, span := s.startSpan(ctx, "registry.mint")
	defer func() { endSpan(span, err) }()

	if err := s.requireRole(ctx, id.RoleMinter, caller, "mint"); err != nil {
		return nil, err
	}
	if req.Owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "record owner must not be the nil principal")
	}
	name, err := id.ParseName(req.Name)
	if err != nil {
		return nil, err
	}
	base, err := models.NewBaseMetadata(name)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(st Stores) error {
		used, err := st.Metadata.NameInUse(ctx, name)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check name reservation")
		}
		if used {
			return dErrors.New(dErrors.CodeConflict, "name already reserved by a live record")
		}
		if err := s.requireUnpaused(ctx, st.Flags); err != nil {
			return err
		}

		recordID, err := st.Metadata.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate record identifier")
		}
		record = &models.Record{
			ID:         recordID,
			Owner:      req.Owner,
			Base:       base,
			Physical:   req.Physical,
			Attributes: req.Attributes,
			MintedAt:   time.Now().UTC(),
		}
		if err := st.Ledger.Create(ctx, req.Owner, recordID); err != nil {
			return s.translateLedgerErr(err, "failed to register record ownership")
		}
		if err := st.Metadata.Insert(ctx, record); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "name already reserved by a live record")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist record metadata")
		}
		return nil
	})
	if err != nil {
		s.incrementRejection("mint", err)
		return nil, err
	}

	s.logAudit(ctx, string(audit.EventRecordMinted),
		"record_id", uint64(record.ID),
		"owner_id", record.Owner.String(),
		"name", record.Base.Name.String())
	if s.metrics != nil {
		s.metrics.RecordsMinted.Inc()
	}
	return record, nil
}

// Burn destroys a record. The caller must be the owner or approved for the
// record. A freed name is mintable again; a freed identifier never is.
func (s *Service) Burn(ctx context.Context, caller id.PrincipalID, recordID id.RecordID) (err error) {
	ctx, span := s.startSpan(ctx, "registry.burn",
		attribute.Int64("record.id", int64(recordID)))
	defer func() { endSpan(span, err) }()

	var owner id.PrincipalID
	err = s.tx.RunInTx(ctx, func(st Stores) error {
		var err error
		owner, err = st.Ledger.OwnerOf(ctx, recordID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve record owner")
		}
		allowed, err := st.Ledger.IsApprovedOrOwner(ctx, caller, recordID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check record approval")
		}
		if !allowed {
			return dErrors.New(dErrors.CodeForbidden, "caller is neither owner nor approved for record")
		}
		if err := s.requireUnpaused(ctx, st.Flags); err != nil {
			return err
		}

		if err := st.Ledger.Destroy(ctx, recordID); err != nil {
			return s.translateLedgerErr(err, "failed to destroy record ownership")
		}
		if err := st.Metadata.Delete(ctx, recordID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete record metadata")
		}
		return nil
	})
	if err != nil {
		s.incrementRejection("burn", err)
		return err
	}

	s.logAudit(ctx, string(audit.EventRecordBurned),
		"record_id", uint64(recordID),
		"owner_id", owner.String())
	if s.metrics != nil {
		s.metrics.RecordsBurned.Inc()
	}
	return nil
}

// Transfer moves ownership of a record from its current owner to another
// principal. The caller must be the owner or approved for the record.
func (s *Service) Transfer(ctx context.Context, caller, from, to id.PrincipalID, recordID id.RecordID) (err error) {
	ctx, span := s.startSpan(ctx, "registry.transfer",
		attribute.Int64("record.id", int64(recordID)))
	defer func() { endSpan(span, err) }()

	if to.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "transfer recipient must not be the nil principal")
	}
	err = s.tx.RunInTx(ctx, func(st Stores) error {
		exists, err := st.Ledger.Exists(ctx, recordID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check record liveness")
		}
		if !exists {
			return dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		allowed, err := st.Ledger.IsApprovedOrOwner(ctx, caller, recordID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check record approval")
		}
		if !allowed {
			return dErrors.New(dErrors.CodeForbidden, "caller is neither owner nor approved for record")
		}
		if err := s.requireUnpaused(ctx, st.Flags); err != nil {
			return err
		}

		if err := st.Ledger.Transfer(ctx, from, to, recordID); err != nil {
			return s.translateLedgerErr(err, "failed to transfer record ownership")
		}
		return nil
	})
	if err != nil {
		s.incrementRejection("transfer", err)
		return err
	}

	s.logAudit(ctx, string(audit.EventRecordTransferred),
		"record_id", uint64(recordID),
		"from_id", from.String(),
		"to_id", to.String())
	if s.metrics != nil {
		s.metrics.RecordsTransferred.Inc()
	}
	return nil
}

// Approve sets the per-record approved principal. Only the current owner may
// approve; the nil principal clears the approval.
func (s *Service) Approve(ctx context.Context, caller, operator id.PrincipalID, recordID id.RecordID) error {
	err := s.tx.RunInTx(ctx, func(st Stores) error {
		owner, err := st.Ledger.OwnerOf(ctx, recordID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve record owner")
		}
		if owner != caller {
			return dErrors.New(dErrors.CodeForbidden, "only the record owner may approve")
		}
		if err := st.Ledger.Approve(ctx, operator, recordID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set record approval")
		}
		return nil
	})
	if err != nil {
		s.incrementRejection("approve", err)
		return err
	}

	s.logAudit(ctx, string(audit.EventApprovalSet),
		"record_id", uint64(recordID),
		"owner_id", caller.String(),
		"operator_id", operator.String())
	return nil
}

// SetApprovalForAll grants or revokes operator rights over every record the
// caller owns, now and in the future.
func (s *Service) SetApprovalForAll(ctx context.Context, caller, operator id.PrincipalID, approved bool) error {
	if operator.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "operator must not be the nil principal")
	}
	if operator == caller {
		return dErrors.New(dErrors.CodeValidation, "caller cannot set operator approval for itself")
	}
	err := s.tx.RunInTx(ctx, func(st Stores) error {
		if err := st.Ledger.SetApprovalForAll(ctx, caller, operator, approved); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set operator approval")
		}
		return nil
	})
	if err != nil {
		s.incrementRejection("set_approval_for_all", err)
		return err
	}

	s.logAudit(ctx, string(audit.EventOperatorApprovalSet),
		"owner_id", caller.String(),
		"operator_id", operator.String(),
		"approved", approved)
	return nil
}

// Pause sets the halt flag. Requires the pauser role; pausing an already
// paused registry fails so that no-op toggles stay visible in the audit log.
func (s *Service) Pause(ctx context.Context, caller id.PrincipalID) error {
	return s.setPaused(ctx, caller, true)
}

// Unpause clears the halt flag. Requires the pauser role; unpausing an
// already running registry fails.
func (s *Service) Unpause(ctx context.Context, caller id.PrincipalID) error {
	return s.setPaused(ctx, caller, false)
}

func (s *Service) setPaused(ctx context.Context, caller id.PrincipalID, paused bool) (err error) {
	operation := "pause"
	event := audit.EventRegistryPaused
	if !paused {
		operation = "unpause"
		event = audit.EventRegistryUnpaused
	}
	ctx, span := s.startSpan(ctx, "registry."+operation)
	defer func() { endSpan(span, err) }()

	if err := s.requireRole(ctx, id.RolePauser, caller, operation); err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(st Stores) error {
		current, err := st.Flags.Get(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read halt flag")
		}
		if current == paused {
			if paused {
				return dErrors.New(dErrors.CodeInvariantViolation, "registry is already paused")
			}
			return dErrors.New(dErrors.CodeInvariantViolation, "registry is not paused")
		}
		if err := st.Flags.Set(ctx, paused); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write halt flag")
		}
		return nil
	})
	if err != nil {
		s.incrementRejection(operation, err)
		return err
	}

	s.logAudit(ctx, string(event), "pauser_id", caller.String())
	if s.metrics != nil {
		s.metrics.SetPaused(paused)
	}
	return nil
}

// Paused reports the current halt flag.
func (s *Service) Paused(ctx context.Context) (bool, error) {
	paused, err := s.flags.Get(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read halt flag")
	}
	return paused, nil
}

// SetBaseURI replaces the URI prefix used to present record identifiers.
// Requires the admin role.
func (s *Service) SetBaseURI(ctx context.Context, caller id.PrincipalID, uri string) error {
	if err := s.requireRole(ctx, id.RoleAdmin, caller, "set_base_uri"); err != nil {
		return err
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return dErrors.New(dErrors.CodeValidation, "base URI must not be empty")
	}

	err := s.tx.RunInTx(ctx, func(Stores) error {
		s.baseMu.Lock()
		s.baseURI = uri
		s.baseMu.Unlock()
		return nil
	})
	if err != nil {
		s.incrementRejection("set_base_uri", err)
		return err
	}

	s.logAudit(ctx, string(audit.EventBaseURIUpdated),
		"admin_id", caller.String(),
		"base_uri", uri)
	return nil
}

// BaseURI returns the current URI prefix.
func (s *Service) BaseURI() string {
	s.baseMu.RLock()
	defer s.baseMu.RUnlock()
	return s.baseURI
}

// RecordURI renders the external URI for a live record.
func (s *Service) RecordURI(ctx context.Context, recordID id.RecordID) (string, error) {
	exists, err := s.ledger.Exists(ctx, recordID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check record liveness")
	}
	if !exists {
		return "", dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return strings.TrimRight(s.BaseURI(), "/") + "/" + recordID.String(), nil
}

// GetRecord returns a live record with its current owner filled in from the
// ledger.
func (s *Service) GetRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	record, err := s.metadata.Find(ctx, recordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record metadata")
	}
	owner, err := s.ledger.OwnerOf(ctx, recordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve record owner")
	}
	record.Owner = owner
	return record, nil
}

// OwnerOf returns the current owner of a live record.
func (s *Service) OwnerOf(ctx context.Context, recordID id.RecordID) (id.PrincipalID, error) {
	owner, err := s.ledger.OwnerOf(ctx, recordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return id.NilPrincipal, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return id.NilPrincipal, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve record owner")
	}
	return owner, nil
}

// ListRecords returns all live records ordered by identifier, owners filled
// in.
func (s *Service) ListRecords(ctx context.Context) ([]*models.Record, error) {
	records, err := s.metadata.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	for _, record := range records {
		owner, err := s.ledger.OwnerOf(ctx, record.ID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve record owner")
		}
		record.Owner = owner
	}
	return records, nil
}

func (s *Service) requireRole(ctx context.Context, role id.Role, caller id.PrincipalID, operation string) error {
	if caller.IsNil() {
		err := dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
		s.incrementRejection(operation, err)
		return err
	}
	held, err := s.roles.HasRole(ctx, role, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check role membership")
	}
	if !held {
		err := dErrors.New(dErrors.CodeForbidden, "caller lacks the "+string(role)+" role")
		s.incrementRejection(operation, err)
		return err
	}
	return nil
}

// requireUnpaused is the explicit pre-write halt check. The ledger guard
// rejects again at the ownership write; under the serialization boundary both
// reads observe the same flag value.
func (s *Service) requireUnpaused(ctx context.Context, flags pause.Store) error {
	paused, err := flags.Get(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read halt flag")
	}
	if paused {
		return dErrors.New(dErrors.CodePaused, "registry is paused")
	}
	return nil
}

func (s *Service) translateLedgerErr(err error, message string) error {
	switch {
	case errors.Is(err, sentinel.ErrPaused):
		return dErrors.New(dErrors.CodePaused, "registry is paused")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "record identifier already live")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvariantViolation, "record ownership does not match")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	subject := attrs.ExtractString(attributes, "owner_id")
	if subject == "" {
		subject = attrs.ExtractString(attributes, "pauser_id")
	}
	if subject == "" {
		subject = attrs.ExtractString(attributes, "admin_id")
	}
	evt := audit.Event{
		Subject: subject,
		Action:  event,
	}
	if recordID, ok := attrs.ExtractUint64(attributes, "record_id"); ok {
		evt.RecordID = &recordID
	}
	_ = s.auditPublisher.Emit(ctx, evt)
}

func (s *Service) incrementRejection(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementRejection(operation, string(dErrors.CodeOf(err)))
}
