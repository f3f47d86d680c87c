package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

// PrincipalStore resolves credentials to identities and identities to their
// active role. ActiveRole returns nil without error when no role is held.
type PrincipalStore interface {
	CurrentIdentity(ctx context.Context, cred Credential) (*Identity, error)
	ActiveRole(ctx context.Context, userID uuid.UUID) (*rbac.Assignment, error)
}

// RoleLister lists the active assignments of a user.
type RoleLister interface {
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]*rbac.Assignment, error)
}

// Store is the PrincipalStore backed by Redis sessions, bearer tokens and
// the users and user_roles tables.
type Store struct {
	sessions *SessionStore
	tokens   *Tokens
	users    Repository
	roles    RoleLister
}

// NewStore constructs a Store. tokens may be nil to disable bearer credentials.
func NewStore(sessions *SessionStore, tokens *Tokens, users Repository, roles RoleLister) *Store {
	return &Store{sessions: sessions, tokens: tokens, users: users, roles: roles}
}

// CurrentIdentity verifies cred and returns the active user it names.
func (s *Store) CurrentIdentity(ctx context.Context, cred Credential) (*Identity, error) {
	var userID uuid.UUID
	switch cred.Kind {
	case CredentialSession:
		id, err := s.sessions.Lookup(ctx, cred.Value)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return nil, shared.ErrUnauthenticated
			}
			return nil, err
		}
		userID = id
	case CredentialBearer:
		if s.tokens == nil {
			return nil, shared.ErrUnauthenticated
		}
		identity, err := s.tokens.Parse(cred.Value)
		if err != nil {
			return nil, shared.ErrUnauthenticated
		}
		userID = identity.ID
	default:
		return nil, shared.ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	if !user.IsActive {
		return nil, shared.ErrUnauthenticated
	}
	return &Identity{ID: user.ID, Email: user.Email}, nil
}

// ActiveRole returns the highest ranked active assignment of userID.
func (s *Store) ActiveRole(ctx context.Context, userID uuid.UUID) (*rbac.Assignment, error) {
	assignments, err := s.roles.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth: list roles: %w", err)
	}
	var best *rbac.Assignment
	for _, a := range assignments {
		if !a.IsActive() || !a.Role.Valid() {
			continue
		}
		if best == nil || a.Role.Rank() > best.Role.Rank() {
			best = a
		}
	}
	return best, nil
}

var _ PrincipalStore = (*Store)(nil)
