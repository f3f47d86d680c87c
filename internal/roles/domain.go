package roles

import (
	"github.com/araxson/enorae-sub010/internal/rbac"
)

// Outcome describes what an assignment call changed.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeUpdated     Outcome = "updated"
	OutcomeReactivated Outcome = "reactivated"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeRevoked     Outcome = "revoked"
)

// AssignRequest is one requested grant. Ids arrive as strings so malformed
// values surface as validation errors.
type AssignRequest struct {
	UserID      string   `json:"user_id" validate:"required,uuid"`
	Role        string   `json:"role" validate:"required"`
	TenantID    string   `json:"tenant_id,omitempty" validate:"omitempty,uuid"`
	Permissions []string `json:"permissions,omitempty" validate:"max=100,dive,max=120"`
	Notes       string   `json:"notes,omitempty" validate:"max=500"`
}

// Result is the state of an assignment after a mutation.
type Result struct {
	Assignment *rbac.Assignment
	Outcome    Outcome

	notes string
}

// BulkResult summarises a bulk assignment. Errors are "{userId}: {message}".
type BulkResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// Revocation reasons are optional but must be meaningful when given.
const (
	minReasonLength = 10
	maxReasonLength = 500
)
