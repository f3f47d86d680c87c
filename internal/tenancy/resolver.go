// Package tenancy decides which salons a principal may act on.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

// Gateway reads tenant ownership and staff membership.
type Gateway interface {
	// OwnerOf returns the owner of tenantID or shared.ErrNotFound.
	OwnerOf(ctx context.Context, tenantID uuid.UUID) (uuid.UUID, error)
	// OwnedTenants lists tenants owned by userID, oldest first.
	OwnedTenants(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// StaffTenants lists tenants where userID has an active staff row, oldest first.
	StaffTenants(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Scope is the set of tenants a principal may act on. All is set for
// platform admins and IDs is then empty.
type Scope struct {
	All bool
	IDs []uuid.UUID
}

// Contains reports whether tenantID is in scope.
func (s Scope) Contains(tenantID uuid.UUID) bool {
	return s.All || slices.Contains(s.IDs, tenantID)
}

// Resolver answers tenant-scoping questions for a session.
type Resolver struct {
	gateway Gateway
}

// NewResolver constructs a Resolver.
func NewResolver(gateway Gateway) *Resolver {
	return &Resolver{gateway: gateway}
}

// AccessibleTenantIDs returns owned tenants followed by staffed tenants.
func (r *Resolver) AccessibleTenantIDs(ctx context.Context, sess auth.Session) (Scope, error) {
	if sess.UserID() == uuid.Nil {
		return Scope{}, shared.ErrUnauthenticated
	}
	if sess.Role.IsPlatformAdmin() {
		return Scope{All: true}, nil
	}
	owned, err := r.gateway.OwnedTenants(ctx, sess.UserID())
	if err != nil {
		return Scope{}, fmt.Errorf("tenancy: owned tenants: %w", err)
	}
	staffed, err := r.gateway.StaffTenants(ctx, sess.UserID())
	if err != nil {
		return Scope{}, fmt.Errorf("tenancy: staff tenants: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(owned)+len(staffed))
	for _, id := range append(owned, staffed...) {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return Scope{IDs: ids}, nil
}

// CanAccessTenant reports whether sess may act on tenantID.
func (r *Resolver) CanAccessTenant(ctx context.Context, sess auth.Session, tenantID uuid.UUID) (bool, error) {
	if sess.UserID() == uuid.Nil {
		return false, shared.ErrUnauthenticated
	}
	if sess.Role.IsPlatformAdmin() {
		return true, nil
	}
	owner, err := r.gateway.OwnerOf(ctx, tenantID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("tenancy: owner of: %w", err)
	case owner == sess.UserID():
		return true, nil
	}
	staffed, err := r.gateway.StaffTenants(ctx, sess.UserID())
	if err != nil {
		return false, fmt.Errorf("tenancy: staff tenants: %w", err)
	}
	return slices.Contains(staffed, tenantID), nil
}

// RequireSingleTenant resolves the one tenant a business flow operates on.
// Ownership wins over staff membership.
func (r *Resolver) RequireSingleTenant(ctx context.Context, sess auth.Session) (uuid.UUID, error) {
	if sess.UserID() == uuid.Nil {
		return uuid.Nil, shared.ErrUnauthenticated
	}
	owned, err := r.gateway.OwnedTenants(ctx, sess.UserID())
	if err != nil {
		return uuid.Nil, fmt.Errorf("tenancy: owned tenants: %w", err)
	}
	if len(owned) > 0 {
		return owned[0], nil
	}
	staffed, err := r.gateway.StaffTenants(ctx, sess.UserID())
	if err != nil {
		return uuid.Nil, fmt.Errorf("tenancy: staff tenants: %w", err)
	}
	if len(staffed) > 0 {
		return staffed[0], nil
	}
	return uuid.Nil, shared.NotFound("no tenant associated")
}

// Administers reports whether sess may manage roles on tenantID: platform
// admins always, business roles when they own the tenant or their active
// assignment is scoped to it. Staff membership alone never qualifies.
func (r *Resolver) Administers(ctx context.Context, sess auth.Session, tenantID uuid.UUID) (bool, error) {
	if sess.UserID() == uuid.Nil {
		return false, shared.ErrUnauthenticated
	}
	if sess.Role.IsPlatformAdmin() {
		return true, nil
	}
	if !sess.Role.In(rbac.BusinessUsers...) {
		return false, nil
	}
	if sess.TenantID != nil && *sess.TenantID == tenantID {
		return true, nil
	}
	owner, err := r.gateway.OwnerOf(ctx, tenantID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("tenancy: owner of: %w", err)
	}
	return owner == sess.UserID(), nil
}
