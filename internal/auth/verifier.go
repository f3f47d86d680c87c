package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

// DefaultVerifyTimeout bounds one verification round trip to the principal store.
const DefaultVerifyTimeout = 2 * time.Second

var tracer = otel.Tracer("github.com/araxson/enorae-sub010/internal/auth")

// DecisionObserver receives the outcome of every authorization check.
type DecisionObserver interface {
	ObserveDecision(check, outcome string)
}

// Verifier turns request credentials into Sessions. It never caches across
// requests; memoisation lives in the request scope.
type Verifier struct {
	store    PrincipalStore
	timeout  time.Duration
	logger   *slog.Logger
	observer DecisionObserver
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithTimeout overrides DefaultVerifyTimeout.
func WithTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithObserver reports decisions to o.
func WithObserver(o DecisionObserver) VerifierOption {
	return func(v *Verifier) { v.observer = o }
}

// NewVerifier constructs a Verifier.
func NewVerifier(store PrincipalStore, logger *slog.Logger, opts ...VerifierOption) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Verifier{store: store, timeout: DefaultVerifyTimeout, logger: logger}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates cred against the principal store. Any failure, including
// a store call outliving the timeout, is reported as shared.ErrUnauthenticated.
func (v *Verifier) Verify(ctx context.Context, cred Credential) (Session, error) {
	if cred.Empty() {
		return Session{}, shared.ErrUnauthenticated
	}
	ctx, span := tracer.Start(ctx, "auth.Verify")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	type outcome struct {
		sess Session
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		sess, err := v.lookup(ctx, cred)
		done <- outcome{sess: sess, err: err}
	}()

	select {
	case <-ctx.Done():
		span.SetStatus(codes.Error, "timeout")
		v.logger.Warn("session verification timed out", slog.Duration("timeout", v.timeout))
		return Session{}, fmt.Errorf("%w: verification timed out", shared.ErrUnauthenticated)
	case res := <-done:
		if res.err != nil {
			span.SetStatus(codes.Error, "verify")
			return Session{}, res.err
		}
		span.SetAttributes(attribute.String("enorae.role", string(res.sess.Role)))
		return res.sess, nil
	}
}

func (v *Verifier) lookup(ctx context.Context, cred Credential) (Session, error) {
	identity, err := v.store.CurrentIdentity(ctx, cred)
	if err != nil {
		return Session{}, v.unauthenticated("identity", err)
	}
	if identity == nil {
		return Session{}, shared.ErrUnauthenticated
	}
	assignment, err := v.store.ActiveRole(ctx, identity.ID)
	if err != nil {
		return Session{}, v.unauthenticated("role", err)
	}
	sess := Session{Identity: *identity}
	if assignment != nil {
		sess.Role = assignment.Role
		sess.TenantID = assignment.TenantID
		sess.Permissions = assignment.Permissions
	}
	return sess, nil
}

func (v *Verifier) unauthenticated(stage string, err error) error {
	if errors.Is(err, shared.ErrUnauthenticated) {
		return shared.ErrUnauthenticated
	}
	v.logger.Error("session verification failed", slog.String("stage", stage), slog.Any("error", err))
	return fmt.Errorf("%w: verification unavailable", shared.ErrUnauthenticated)
}

type scopeKey struct{}

// requestScope memoises the verification result of one request.
type requestScope struct {
	cred  Credential
	group singleflight.Group

	mu   sync.Mutex
	done bool
	sess Session
	err  error
}

// WithScope starts a verification scope for one request.
func WithScope(ctx context.Context, cred Credential) context.Context {
	return context.WithValue(ctx, scopeKey{}, &requestScope{cred: cred})
}

func scopeFromContext(ctx context.Context) *requestScope {
	sc, _ := ctx.Value(scopeKey{}).(*requestScope)
	return sc
}

func (sc *requestScope) result() (Session, error, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sess, sc.err, sc.done
}

// Session returns the verified session of the request in ctx, verifying at
// most once per scope. Concurrent callers share one verification.
func (v *Verifier) Session(ctx context.Context) (Session, error) {
	sc := scopeFromContext(ctx)
	if sc == nil {
		return Session{}, shared.ErrUnauthenticated
	}
	if sess, err, done := sc.result(); done {
		return sess, err
	}
	resultChan := sc.group.DoChan("session", func() (interface{}, error) {
		sess, err := v.Verify(ctx, sc.cred)
		sc.mu.Lock()
		sc.sess, sc.err, sc.done = sess, err, true
		sc.mu.Unlock()
		return sess, err
	})
	select {
	case <-ctx.Done():
		return Session{}, shared.ErrUnauthenticated
	case res := <-resultChan:
		sess, _ := res.Val.(Session)
		return sess, res.Err
	}
}

// RequireAuthenticated returns the caller's session or shared.ErrUnauthenticated.
func (v *Verifier) RequireAuthenticated(ctx context.Context) (Session, error) {
	sess, err := v.Session(ctx)
	v.observe("authenticated", err)
	return sess, err
}

// RequireRole requires the caller to hold exactly role.
func (v *Verifier) RequireRole(ctx context.Context, role rbac.Role) (Session, error) {
	return v.RequireAnyRole(ctx, role)
}

// RequireAnyRole requires the caller to hold one of roles.
func (v *Verifier) RequireAnyRole(ctx context.Context, roles ...rbac.Role) (Session, error) {
	sess, err := v.Session(ctx)
	if err != nil {
		v.observe("role", err)
		return Session{}, err
	}
	if !sess.HasRole() || !sess.Role.In(roles...) {
		v.observe("role", shared.ErrForbidden)
		return Session{}, shared.Forbidden("insufficient permissions")
	}
	v.observe("role", nil)
	return sess, nil
}

func (v *Verifier) observe(check string, err error) {
	if v.observer == nil {
		return
	}
	outcome := "allowed"
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrUnauthenticated):
		outcome = "unauthenticated"
	case errors.Is(err, shared.ErrForbidden):
		outcome = "forbidden"
	default:
		outcome = "error"
	}
	v.observer.ObserveDecision(check, outcome)
}
