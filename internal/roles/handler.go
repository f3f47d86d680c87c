package roles

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/platform/httpx"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

// Handler exposes role management over HTTP.
type Handler struct {
	engine   *Engine
	limiter  Limiter
	verifier *auth.Verifier
	managers []rbac.Role
}

// NewHandler constructs a Handler. managers are the roles allowed to call it;
// the engine still authorises every change against tenancy.
func NewHandler(engine *Engine, limiter Limiter, verifier *auth.Verifier, managers ...rbac.Role) *Handler {
	if len(managers) == 0 {
		managers = append(append([]rbac.Role{}, rbac.PlatformAdmins...), rbac.BusinessUsers...)
	}
	return &Handler{engine: engine, limiter: limiter, verifier: verifier, managers: managers}
}

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/assignments", func(r chi.Router) {
		r.Post("/", h.assign)
		r.Post("/bulk", h.bulk)
		r.Patch("/{id}/permissions", h.updatePermissions)
		r.Post("/{id}/revoke", h.revoke)
		r.Post("/{id}/reactivate", h.reactivate)
	})
}

type assignmentResponse struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Role        rbac.Role          `json:"role"`
	TenantID    *string            `json:"tenant_id"`
	Permissions rbac.PermissionSet `json:"permissions"`
	IsActive    bool               `json:"is_active"`
	DeletedAt   *time.Time         `json:"deleted_at,omitempty"`
	DeletedBy   *string            `json:"deleted_by,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Outcome     Outcome            `json:"outcome,omitempty"`
}

func toResponse(a *rbac.Assignment, outcome Outcome) assignmentResponse {
	resp := assignmentResponse{
		ID:          a.ID.String(),
		UserID:      a.UserID.String(),
		Role:        a.Role,
		Permissions: a.Permissions,
		IsActive:    a.IsActive(),
		UpdatedAt:   a.UpdatedAt,
		Outcome:     outcome,
	}
	if a.TenantID != nil {
		id := a.TenantID.String()
		resp.TenantID = &id
	}
	if a.Revocation != nil {
		at, by := a.Revocation.At, a.Revocation.By.String()
		resp.DeletedAt, resp.DeletedBy = &at, &by
	}
	return resp
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	sess, err := h.verifier.RequireAnyRole(r.Context(), h.managers...)
	if err != nil {
		httpx.RespondError(w, err)
		return auth.Session{}, false
	}
	return sess, true
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("malformed request body"))
		return
	}
	res, err := h.engine.Assign(r.Context(), sess, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusOK
	if res.Outcome == OutcomeCreated {
		status = http.StatusCreated
	}
	httpx.OK(w, status, toResponse(res.Assignment, res.Outcome))
}

type bulkRequest struct {
	Assignments []AssignRequest `json:"assignments"`
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("malformed request body"))
		return
	}
	res, err := h.engine.BulkAssign(r.Context(), h.limiter, sess, req.Assignments)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, res)
}

type permissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req permissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("malformed request body"))
		return
	}
	a, err := h.engine.UpdatePermissions(r.Context(), sess, chi.URLParam(r, "id"), req.Permissions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(a, OutcomeUpdated))
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req revokeRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, shared.Validation("malformed request body"))
			return
		}
	}
	a, err := h.engine.Revoke(r.Context(), sess, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(a, ""))
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	a, err := h.engine.Reactivate(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(a, ""))
}
