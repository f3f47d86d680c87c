// Package audit appends immutable records of privileged mutations.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Category groups audit events.
type Category string

const (
	CategoryRoleManagement Category = "role_management"
	CategorySecurity       Category = "security"
	CategoryAdminOps       Category = "admin_operations"
)

// Severity grades an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Event types emitted by the authorization core.
const (
	EventRoleAssigned           = "role_assigned"
	EventRolePermissionsUpdated = "role_permissions_updated"
	EventRoleRevoked            = "role_revoked"
	EventRoleReactivated        = "role_reactivated"
	EventRoleBulkAssignment     = "role_bulk_assignment"
	EventRoleAssignmentDenied   = "role_assignment_denied"
	EventRoleBootstrap          = "role_bootstrap"
	EventLogin                  = "login"
	EventLoginFailed            = "login_failed"
	EventLogout                 = "logout"
)

// TargetUserRole is the entity type of role assignment rows.
const TargetUserRole = "user_role"

// Entry is one audit_logs row. ID and CreatedAt are assigned by the store.
type Entry struct {
	ID               int64          `json:"id,omitempty"`
	EventType        string         `json:"event_type"`
	Category         Category       `json:"event_category"`
	Severity         Severity       `json:"severity"`
	ActorID          *uuid.UUID     `json:"actor_id,omitempty"`
	TargetEntityType string         `json:"target_entity_type"`
	TargetEntityID   *string        `json:"target_entity_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	IsSuccess        bool           `json:"is_success"`
	CreatedAt        time.Time      `json:"created_at,omitempty"`
}

// Actor returns a pointer suitable for Entry.ActorID.
func Actor(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Target returns a pointer suitable for Entry.TargetEntityID.
func Target(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
