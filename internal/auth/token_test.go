package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	identity := Identity{ID: uuid.New(), Email: "c@example.com"}

	raw, err := tokens.Issue(identity)
	require.NoError(t, err)

	got, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestTokensRejectWrongSecret(t *testing.T) {
	raw, err := NewTokens("one", time.Minute).Issue(Identity{ID: uuid.New()})
	require.NoError(t, err)

	_, err = NewTokens("two", time.Minute).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issuedAt }
	raw, err := tokens.Issue(Identity{ID: uuid.New()})
	require.NoError(t, err)

	tokens.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectUnsignedAlgorithm(t *testing.T) {
	claims := AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Minute).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
