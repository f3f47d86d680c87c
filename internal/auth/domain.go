package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/araxson/enorae-sub010/internal/rbac"
)

// User represents an authenticated user account.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the verified principal behind a credential.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// CredentialKind tells the principal store how to read a credential.
type CredentialKind int

const (
	CredentialNone CredentialKind = iota
	// CredentialSession is the id of a Redis-backed login session.
	CredentialSession
	// CredentialBearer is a signed access token.
	CredentialBearer
)

// Credential is the raw proof of identity carried by a request.
type Credential struct {
	Kind  CredentialKind
	Value string
}

// Empty reports whether the request carried no credential.
func (c Credential) Empty() bool {
	return c.Kind == CredentialNone || c.Value == ""
}

// Session is the verified identity and active role of the caller for one request.
// Role is empty when the identity holds no active assignment.
type Session struct {
	Identity    Identity
	Role        rbac.Role
	TenantID    *uuid.UUID
	Permissions rbac.PermissionSet
}

// UserID is shorthand for the identity id.
func (s Session) UserID() uuid.UUID {
	return s.Identity.ID
}

// HasRole reports whether the session carries a role at all.
func (s Session) HasRole() bool {
	return s.Role != ""
}
