package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/araxson/enorae-sub010/internal/shared"
)

type brokenUsers struct{}

func (brokenUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	return nil, errors.New("connection reset")
}

func (brokenUsers) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return nil, errors.New("connection reset")
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	active := &User{ID: uuid.New(), Email: "owner@example.com", PasswordHash: string(hash), IsActive: true}
	disabled := &User{ID: uuid.New(), Email: "gone@example.com", PasswordHash: string(hash)}
	svc := NewService(newMemoryUsers(active, disabled))
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "  owner@example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, active.ID, user.ID)

	_, err = svc.Authenticate(ctx, "owner@example.com", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "gone@example.com", "correct horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateStorageFailure(t *testing.T) {
	_, err := NewService(brokenUsers{}).Authenticate(context.Background(), "owner@example.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}
