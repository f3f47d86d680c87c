package rbac

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of an assignment key.
type State int

const (
	// StateAbsent means no row exists for the key.
	StateAbsent State = iota
	StateActive
	StateRevoked
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateRevoked:
		return "revoked"
	default:
		return "absent"
	}
}

// ErrInvalidTransition is returned for lifecycle moves that are not allowed.
var ErrInvalidTransition = errors.New("rbac: invalid lifecycle transition")

// Key identifies the single row an assignment upsert targets. A nil tenant is
// part of the key.
type Key struct {
	UserID   uuid.UUID
	Role     Role
	TenantID *uuid.UUID
}

// Revocation marks a soft-deleted assignment. At and By are always set together.
type Revocation struct {
	At time.Time
	By uuid.UUID
}

// Assignment grants a role to a user, optionally scoped to a tenant.
type Assignment struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Role        Role
	TenantID    *uuid.UUID
	Permissions PermissionSet
	State       State
	Revocation  *Revocation
	CreatedBy   uuid.UUID
	UpdatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewAssignment builds an active assignment created by actor.
func NewAssignment(key Key, perms PermissionSet, actor uuid.UUID, now time.Time) *Assignment {
	return &Assignment{
		ID:          uuid.New(),
		UserID:      key.UserID,
		Role:        key.Role,
		TenantID:    cloneTenant(key.TenantID),
		Permissions: perms,
		State:       StateActive,
		CreatedBy:   actor,
		UpdatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Key returns the uniqueness key of a.
func (a *Assignment) Key() Key {
	return Key{UserID: a.UserID, Role: a.Role, TenantID: cloneTenant(a.TenantID)}
}

// IsActive reports whether the assignment currently grants its role.
func (a *Assignment) IsActive() bool {
	return a != nil && a.State == StateActive
}

// Revoke soft-deletes an active assignment.
func (a *Assignment) Revoke(actor uuid.UUID, now time.Time) error {
	if a.State != StateActive {
		return ErrInvalidTransition
	}
	a.State = StateRevoked
	a.Revocation = &Revocation{At: now, By: actor}
	a.touch(actor, now)
	return nil
}

// Reactivate clears the revocation of a revoked assignment. Permissions are kept.
func (a *Assignment) Reactivate(actor uuid.UUID, now time.Time) error {
	if a.State != StateRevoked {
		return ErrInvalidTransition
	}
	a.State = StateActive
	a.Revocation = nil
	a.touch(actor, now)
	return nil
}

// ReplacePermissions overwrites the explicit permission set.
func (a *Assignment) ReplacePermissions(perms PermissionSet, actor uuid.UUID, now time.Time) {
	a.Permissions = perms
	a.touch(actor, now)
}

func (a *Assignment) touch(actor uuid.UUID, now time.Time) {
	a.UpdatedBy = actor
	a.UpdatedAt = now
}

// SameTenant reports whether two optional tenant ids are equal.
func SameTenant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneTenant(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
