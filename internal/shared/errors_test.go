package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapsToKind(t *testing.T) {
	err := fmt.Errorf("roles: assign: %w", Validation("tenant id is required"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Equal(t, ErrValidation, KindOf(err))
	assert.Equal(t, "tenant id is required", UserSafeMessage(err))
}

func TestUserSafeMessageHidesInternalErrors(t *testing.T) {
	err := errors.New("pq: relation user_roles does not exist")
	assert.Equal(t, "internal error", UserSafeMessage(err))
	assert.Nil(t, KindOf(err))
}

func TestUserSafeMessageFallsBackToKind(t *testing.T) {
	assert.Equal(t, "too many requests, try again later", UserSafeMessage(fmt.Errorf("bulk: %w", ErrRateLimited)))
	assert.Equal(t, "authentication required", UserSafeMessage(ErrUnauthenticated))
	assert.Equal(t, "", UserSafeMessage(nil))
}
