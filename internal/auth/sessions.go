package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("auth: session not found")

// SessionStore keeps login sessions in Redis and mirrors them in a cookie.
type SessionStore struct {
	client     redis.Cmdable
	cookieName string
	ttl        time.Duration
	secure     bool
}

type sessionPayload struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client redis.Cmdable, cookieName string, ttl time.Duration, secure bool) *SessionStore {
	return &SessionStore{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Create stores a session for userID and returns its id.
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("auth: session id: %w", err)
	}
	data, err := json.Marshal(sessionPayload{UserID: userID.String(), CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.redisKey(id.String()), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store session: %w", err)
	}
	return id.String(), nil
}

// Lookup resolves a session id to the user it belongs to.
func (s *SessionStore) Lookup(ctx context.Context, id string) (uuid.UUID, error) {
	payload, err := s.client.Get(ctx, s.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrSessionNotFound
		}
		return uuid.Nil, fmt.Errorf("auth: load session: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return uuid.Nil, fmt.Errorf("auth: decode session: %w", err)
	}
	userID, err := uuid.Parse(stored.UserID)
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}
	return userID, nil
}

// Destroy deletes a session.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.redisKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// WriteCookie sets the session cookie on the response.
func (s *SessionStore) WriteCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(s.ttl),
	})
}

// ClearCookie expires the session cookie.
func (s *SessionStore) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (s *SessionStore) CookieName() string {
	return s.cookieName
}

func (s *SessionStore) redisKey(id string) string {
	return "session:" + id
}
