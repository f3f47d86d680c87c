package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/araxson/enorae-sub010/internal/audit"
	"github.com/araxson/enorae-sub010/internal/platform/httpx"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

// Auditor records security events.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *SessionStore
	tokens    *Tokens
	verifier  *Verifier
	matrix    *rbac.Matrix
	audit     Auditor
	validator *validator.Validate
}

// HandlerDeps groups Handler collaborators. Tokens may be nil.
type HandlerDeps struct {
	Logger   *slog.Logger
	Service  *Service
	Sessions *SessionStore
	Tokens   *Tokens
	Verifier *Verifier
	Matrix   *rbac.Matrix
	Audit    Auditor
}

// NewHandler constructs a Handler instance.
func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   deps.Service,
		sessions:  deps.Sessions,
		tokens:    deps.Tokens,
		verifier:  deps.Verifier,
		matrix:    deps.Matrix,
		audit:     deps.Audit,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	DefaultRoute string `json:"default_route"`
	AccessToken  string `json:"access_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validation("email and password are required"))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.record(r.Context(), audit.Entry{
			EventType:        audit.EventLoginFailed,
			Category:         audit.CategorySecurity,
			Severity:         audit.SeverityWarning,
			TargetEntityType: "user",
			Metadata:         map[string]any{"remote_addr": r.RemoteAddr},
		})
		httpx.RespondError(w, err)
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("create session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.sessions.WriteCookie(w, sessionID)

	identity := Identity{ID: user.ID, Email: user.Email}
	resp := loginResponse{UserID: user.ID.String(), DefaultRoute: rbac.FallbackRoute}
	// The fresh session has its own scope so the landing route reflects the stored role.
	ctx := WithScope(r.Context(), Credential{Kind: CredentialSession, Value: sessionID})
	if sess, err := h.verifier.Session(ctx); err == nil {
		resp.DefaultRoute = h.matrix.DefaultRoute(sess.Role)
	}
	if h.tokens != nil {
		token, err := h.tokens.Issue(identity)
		if err != nil {
			h.logger.Error("issue token", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		resp.AccessToken = token
		resp.ExpiresIn = int64(h.tokens.TTL().Seconds())
	}

	h.record(r.Context(), audit.Entry{
		EventType:        audit.EventLogin,
		Category:         audit.CategorySecurity,
		Severity:         audit.SeverityInfo,
		ActorID:          audit.Actor(user.ID),
		TargetEntityType: "user",
		TargetEntityID:   audit.Target(user.ID.String()),
		IsSuccess:        true,
	})
	httpx.OK(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, err := h.verifier.Session(r.Context()); err == nil {
		h.record(r.Context(), audit.Entry{
			EventType:        audit.EventLogout,
			Category:         audit.CategorySecurity,
			Severity:         audit.SeverityInfo,
			ActorID:          audit.Actor(sess.UserID()),
			TargetEntityType: "user",
			TargetEntityID:   audit.Target(sess.UserID().String()),
			IsSuccess:        true,
		})
	}
	// The cookie is read directly: a bearer token on the same request wins
	// credential extraction but must not keep the cookie session alive.
	if cookie, err := r.Cookie(h.sessions.CookieName()); err == nil && cookie.Value != "" {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
	}
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	UserID          string   `json:"user_id"`
	Email           string   `json:"email"`
	Role            string   `json:"role,omitempty"`
	TenantID        string   `json:"tenant_id,omitempty"`
	StaffLevel      string   `json:"staff_level,omitempty"`
	DefaultRoute    string   `json:"default_route"`
	AllowedPrefixes []string `json:"allowed_prefixes"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.verifier.RequireAuthenticated(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := sessionResponse{
		UserID:          sess.UserID().String(),
		Email:           sess.Identity.Email,
		Role:            string(sess.Role),
		StaffLevel:      sess.Role.StaffLevel(),
		DefaultRoute:    h.matrix.DefaultRoute(sess.Role),
		AllowedPrefixes: h.matrix.AllowedPrefixes(sess.Role),
	}
	if sess.TenantID != nil {
		resp.TenantID = sess.TenantID.String()
	}
	httpx.OK(w, http.StatusOK, resp)
}

func (h *Handler) record(ctx context.Context, entry audit.Entry) {
	if h.audit == nil {
		return
	}
	h.audit.Record(ctx, entry)
}
