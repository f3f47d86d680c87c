package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/araxson/enorae-sub010/internal/shared"
)

// placeholderHash is compared against when no user matches so unknown and
// known emails take the same time to reject.
var placeholderHash, _ = bcrypt.GenerateFromPassword([]byte("enorae-placeholder"), bcrypt.DefaultCost)

// Service checks login credentials.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate returns the active user owning email and password. Unknown
// emails, inactive users and wrong passwords all yield
// shared.ErrInvalidCredentials; storage failures are returned wrapped.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, shared.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(placeholderHash, []byte(password))
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}
