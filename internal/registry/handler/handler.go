// Package handler exposes the record lifecycle over HTTP. It decodes and
// validates request shapes, resolves the caller from the auth context, and
// delegates to the lifecycle controller without embedding business logic.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"effigy/internal/platform/metrics"
	"effigy/internal/platform/middleware"
	"effigy/internal/registry/models"
	"effigy/internal/registry/service"
	"effigy/internal/transport/http/shared"
	id "effigy/pkg/domain"
	dErrors "effigy/pkg/domain-errors"
)

// Service defines the lifecycle operations the handler exposes.
type Service interface {
	Mint(ctx context.Context, caller id.PrincipalID, req service.MintRequest) (*models.Record, error)
	Burn(ctx context.Context, caller id.PrincipalID, recordID id.RecordID) error
	Transfer(ctx context.Context, caller, from, to id.PrincipalID, recordID id.RecordID) error
	Approve(ctx context.Context, caller, operator id.PrincipalID, recordID id.RecordID) error
	SetApprovalForAll(ctx context.Context, caller, operator id.PrincipalID, approved bool) error
	Pause(ctx context.Context, caller id.PrincipalID) error
	Unpause(ctx context.Context, caller id.PrincipalID) error
	Paused(ctx context.Context) (bool, error)
	SetBaseURI(ctx context.Context, caller id.PrincipalID, uri string) error
	RecordURI(ctx context.Context, recordID id.RecordID) (string, error)
	GetRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	OwnerOf(ctx context.Context, recordID id.RecordID) (id.PrincipalID, error)
	ListRecords(ctx context.Context) ([]*models.Record, error)
}

// Handler handles registry endpoints.
type Handler struct {
	logger       *slog.Logger
	registry     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a registry Handler.
func New(
	registry Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		registry:     registry,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	registryRouter := chi.NewRouter()
	registryRouter.Use(middleware.Recovery(h.logger))
	registryRouter.Use(middleware.RequestID)
	registryRouter.Use(middleware.Logger(h.logger))
	registryRouter.Use(middleware.Timeout(30 * time.Second))
	registryRouter.Use(middleware.ContentTypeJSON)
	registryRouter.Use(middleware.LatencyMiddleware(h.metrics))
	registryRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	registryRouter.Post("/records", h.handleMint)
	registryRouter.Get("/records", h.handleListRecords)
	registryRouter.Get("/records/{id}", h.handleGetRecord)
	registryRouter.Delete("/records/{id}", h.handleBurn)
	registryRouter.Get("/records/{id}/owner", h.handleOwnerOf)
	registryRouter.Get("/records/{id}/uri", h.handleRecordURI)
	registryRouter.Post("/records/{id}/transfer", h.handleTransfer)
	registryRouter.Post("/records/{id}/approve", h.handleApprove)
	registryRouter.Post("/operators", h.handleSetOperator)
	registryRouter.Post("/pause", h.handlePause)
	registryRouter.Post("/unpause", h.handleUnpause)
	registryRouter.Get("/pause", h.handlePauseState)
	registryRouter.Put("/base-uri", h.handleSetBaseURI)

	r.Mount("/registry", registryRouter)
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req MintRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid mint request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	owner, err := id.ParsePrincipalID(req.Owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.registry.Mint(ctx, caller, service.MintRequest{
		Owner:      owner,
		Name:       req.Name,
		Physical:   req.Physical,
		Attributes: req.Attributes,
	})
	if err != nil {
		h.warn(ctx, "mint rejected", err)
		shared.WriteError(w, err)
		return
	}

	uri, err := h.registry.RecordURI(ctx, record.ID)
	if err != nil {
		uri = ""
	}
	shared.WriteJSON(w, http.StatusCreated, toRecordResponse(record, uri))
}

func (h *Handler) handleBurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	if err := h.registry.Burn(ctx, caller, recordID); err != nil {
		h.warn(ctx, "burn rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req TransferRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	from, err := id.ParsePrincipalID(req.From)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	to, err := id.ParsePrincipalID(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.registry.Transfer(ctx, caller, from, to, recordID); err != nil {
		h.warn(ctx, "transfer rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	// Empty operator clears the approval.
	operator := id.NilPrincipal
	if req.Operator != "" {
		var err error
		operator, err = id.ParsePrincipalID(req.Operator)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
	}

	if err := h.registry.Approve(ctx, caller, operator, recordID); err != nil {
		h.warn(ctx, "approve rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetOperator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req OperatorApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	operator, err := id.ParsePrincipalID(req.Operator)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.registry.SetApprovalForAll(ctx, caller, operator, req.Approved); err != nil {
		h.warn(ctx, "operator approval rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.registry.Pause(ctx, caller); err != nil {
		h.warn(ctx, "pause rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.registry.Unpause(ctx, caller); err != nil {
		h.warn(ctx, "unpause rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePauseState(w http.ResponseWriter, r *http.Request) {
	paused, err := h.registry.Paused(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, PauseStateResponse{Paused: paused})
}

func (h *Handler) handleSetBaseURI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req BaseURIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.registry.SetBaseURI(ctx, caller, req.BaseURI); err != nil {
		h.warn(ctx, "base URI update rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	record, err := h.registry.GetRecord(ctx, recordID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	uri, err := h.registry.RecordURI(ctx, recordID)
	if err != nil {
		uri = ""
	}
	shared.WriteJSON(w, http.StatusOK, toRecordResponse(record, uri))
}

func (h *Handler) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}
	owner, err := h.registry.OwnerOf(r.Context(), recordID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"owner": owner.String()})
}

func (h *Handler) handleRecordURI(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}
	uri, err := h.registry.RecordURI(r.Context(), recordID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"uri": uri})
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.ListRecords(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record, ""))
	}
	shared.WriteJSON(w, http.StatusOK, ListRecordsResponse{Records: out, Count: len(out)})
}

// caller resolves the authenticated principal set by RequireAuth.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (id.PrincipalID, bool) {
	caller := middleware.GetPrincipalID(r.Context())
	if caller.IsNil() {
		h.logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(r.Context()))
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.NilPrincipal, false
	}
	return caller, true
}

func (h *Handler) recordID(w http.ResponseWriter, r *http.Request) (id.RecordID, bool) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return 0, false
	}
	return recordID, true
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error())
}
