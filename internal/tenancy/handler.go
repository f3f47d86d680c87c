package tenancy

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/platform/httpx"
)

// Handler exposes tenant scoping to the business portal.
type Handler struct {
	resolver *Resolver
	verifier *auth.Verifier
}

// NewHandler constructs a Handler.
func NewHandler(resolver *Resolver, verifier *auth.Verifier) *Handler {
	return &Handler{resolver: resolver, verifier: verifier}
}

// MountRoutes registers tenant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tenant", h.current)
	r.Get("/tenants", h.accessible)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	sess, err := h.verifier.RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.resolver.RequireSingleTenant(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]string{"tenant_id": id.String()})
}

type scopeResponse struct {
	All       bool     `json:"all"`
	TenantIDs []string `json:"tenant_ids"`
}

func (h *Handler) accessible(w http.ResponseWriter, r *http.Request) {
	sess, err := h.verifier.RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope, err := h.resolver.AccessibleTenantIDs(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := scopeResponse{All: scope.All, TenantIDs: make([]string, 0, len(scope.IDs))}
	for _, id := range scope.IDs {
		resp.TenantIDs = append(resp.TenantIDs, id.String())
	}
	httpx.OK(w, http.StatusOK, resp)
}
