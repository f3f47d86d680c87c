package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/araxson/enorae-sub010/internal/platform/httpx"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

// CredentialFromRequest extracts the caller's credential. A bearer token
// takes precedence over the session cookie.
func CredentialFromRequest(r *http.Request, cookieName string) Credential {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "bearer") && strings.TrimSpace(token) != "" {
			return Credential{Kind: CredentialBearer, Value: strings.TrimSpace(token)}
		}
	}
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return Credential{Kind: CredentialSession, Value: cookie.Value}
	}
	return Credential{}
}

// Middleware wires session verification helpers for HTTP handlers.
type Middleware struct {
	Verifier   *Verifier
	Matrix     *rbac.Matrix
	CookieName string
	Logger     *slog.Logger
}

// Scope attaches a per-request verification scope.
func (m Middleware) Scope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithScope(r.Context(), CredentialFromRequest(r, m.CookieName))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuthenticated rejects requests without a verified session.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.Verifier.RequireAuthenticated(r.Context()); err != nil {
			m.deny(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAnyRole ensures the caller holds one of roles.
func (m Middleware) RequireAnyRole(roles ...rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := m.Verifier.RequireAnyRole(r.Context(), roles...); err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoute checks the request path against the capability matrix.
func (m Middleware) RequireRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.Verifier.RequireAuthenticated(r.Context())
		if err != nil {
			m.deny(w, r, err)
			return
		}
		if !m.Matrix.CanAccessRoute(sess.Role, r.URL.Path) {
			m.Verifier.observe("route", shared.ErrForbidden)
			m.deny(w, r, shared.Forbidden("insufficient permissions"))
			return
		}
		m.Verifier.observe("route", nil)
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	if m.Logger != nil {
		m.Logger.Debug("request denied", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
