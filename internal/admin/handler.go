// Package admin exposes role membership management. Routes are gated by the
// static admin token, not by JWT auth: role bindings are operator
// configuration, one level below the registry's own role checks.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"effigy/internal/audit"
	"effigy/internal/platform/middleware"
	"effigy/internal/rolestore"
	"effigy/internal/transport/http/shared"
	id "effigy/pkg/domain"
	dErrors "effigy/pkg/domain-errors"
	"effigy/pkg/platform/sentinel"
)

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Handler handles role administration endpoints.
type Handler struct {
	roles          rolestore.Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	adminTokenHash string
}

func New(roles rolestore.Store, logger *slog.Logger, auditPublisher AuditPublisher, adminTokenHash string) *Handler {
	return &Handler{
		roles:          roles,
		logger:         logger,
		auditPublisher: auditPublisher,
		adminTokenHash: adminTokenHash,
	}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.Recovery(h.logger))
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.Logger(h.logger))
	adminRouter.Use(middleware.RequireAdminToken(h.adminTokenHash, h.logger))

	adminRouter.Post("/roles/grant", h.handleGrant)
	adminRouter.Post("/roles/revoke", h.handleRevoke)
	adminRouter.Get("/roles/{role}", h.handleListRole)

	r.Mount("/admin", adminRouter)
}

// RoleBindingRequest names a (role, principal) pair.
type RoleBindingRequest struct {
	Role      string `json:"role"`
	Principal string `json:"principal"`
}

// RoleMembersResponse lists current members of a role.
type RoleMembersResponse struct {
	Role       string   `json:"role"`
	Principals []string `json:"principals"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role, principal, ok := h.decodeBinding(w, r)
	if !ok {
		return
	}

	if err := h.roles.Grant(ctx, role, principal); err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role"))
		return
	}
	h.logAudit(ctx, audit.EventRoleGranted, role, principal)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role, principal, ok := h.decodeBinding(w, r)
	if !ok {
		return
	}

	err := h.roles.Revoke(ctx, role, principal)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "role binding not found"))
			return
		}
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role"))
		return
	}
	h.logAudit(ctx, audit.EventRoleRevoked, role, principal)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRole(w http.ResponseWriter, r *http.Request) {
	role, err := id.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	members, err := h.roles.ListPrincipals(r.Context(), role)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list role members"))
		return
	}
	out := make([]string, 0, len(members))
	for _, member := range members {
		out = append(out, member.String())
	}
	shared.WriteJSON(w, http.StatusOK, RoleMembersResponse{Role: string(role), Principals: out})
}

func (h *Handler) decodeBinding(w http.ResponseWriter, r *http.Request) (id.Role, id.PrincipalID, bool) {
	var req RoleBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return "", id.NilPrincipal, false
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return "", id.NilPrincipal, false
	}
	principal, err := id.ParsePrincipalID(req.Principal)
	if err != nil {
		shared.WriteError(w, err)
		return "", id.NilPrincipal, false
	}
	return role, principal, true
}

func (h *Handler) logAudit(ctx context.Context, event audit.EventType, role id.Role, principal id.PrincipalID) {
	if h.logger != nil {
		h.logger.InfoContext(ctx, string(event),
			"role", string(role),
			"principal_id", principal.String(),
			"request_id", middleware.GetRequestID(ctx),
			"event", string(event),
			"log_type", "audit")
	}
	if h.auditPublisher == nil {
		return
	}
	_ = h.auditPublisher.Emit(ctx, audit.Event{
		Subject: principal.String(),
		Action:  string(event),
		Detail:  string(role),
	})
}
