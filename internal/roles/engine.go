// Package roles manages role assignments: granting, permission edits,
// revocation and bulk grants, each authorised against the actor's tenancy
// and recorded in the audit log.
package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/araxson/enorae-sub010/internal/audit"
	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

var tracer = otel.Tracer("github.com/araxson/enorae-sub010/internal/roles")

// Repository persists assignments. Get and FindByKey return shared.ErrNotFound
// for missing rows; Insert returns shared.ErrConflict on a duplicate key.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*rbac.Assignment, error)
	FindByKey(ctx context.Context, key rbac.Key) (*rbac.Assignment, error)
	Insert(ctx context.Context, a *rbac.Assignment) error
	Update(ctx context.Context, a *rbac.Assignment) error
}

// TenantAuthority answers whether a session may manage roles on a tenant.
type TenantAuthority interface {
	Administers(ctx context.Context, sess auth.Session, tenantID uuid.UUID) (bool, error)
}

// Auditor records role management events.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
	RecordAttempt(ctx context.Context, entry audit.Entry)
}

// Engine applies role assignment mutations.
type Engine struct {
	repo      Repository
	tenants   TenantAuthority
	audit     Auditor
	logger    *slog.Logger
	validator *validator.Validate
	now       func() time.Time
	bulkMax   int
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithBulkMaxItems overrides the bulk batch size limit.
func WithBulkMaxItems(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.bulkMax = n
		}
	}
}

// NewEngine constructs an Engine.
func NewEngine(repo Repository, tenants TenantAuthority, auditor Auditor, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		repo:      repo,
		tenants:   tenants,
		audit:     auditor,
		logger:    logger,
		validator: validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
		bulkMax:   BulkMaxItems,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type assignInput struct {
	key   rbac.Key
	perms rbac.PermissionSet
	notes string
}

func (e *Engine) parseAssign(req AssignRequest) (assignInput, error) {
	if err := e.validator.Struct(req); err != nil {
		return assignInput{}, shared.Validation(describeValidation(err))
	}
	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		return assignInput{}, shared.Validation("unknown role")
	}
	in := assignInput{
		key:   rbac.Key{UserID: uuid.MustParse(req.UserID), Role: role},
		perms: rbac.NewPermissionSet(req.Permissions...),
		notes: strings.TrimSpace(req.Notes),
	}
	if req.TenantID != "" {
		id := uuid.MustParse(req.TenantID)
		in.key.TenantID = &id
	}
	switch {
	case role.RequiresTenant() && in.key.TenantID == nil:
		return assignInput{}, shared.Validation("tenant is required for this role")
	case !role.RequiresTenant() && in.key.TenantID != nil:
		return assignInput{}, shared.Validation("tenant is not allowed for this role")
	}
	return in, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}
	switch verrs[0].Field() {
	case "UserID":
		return "user_id must be a valid uuid"
	case "Role":
		return "role is required"
	case "TenantID":
		return "tenant_id must be a valid uuid"
	case "Permissions":
		return "too many permissions"
	case "Notes":
		return "notes are too long"
	default:
		return "invalid input"
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.Validation("invalid assignment id")
	}
	return id, nil
}

// authorize checks that actor may manage role on tenant. Non-platform actors
// need a tenant they administer and cannot grant above their own rank.
// Denials are audited unless record is false; bulk items report theirs in the
// batch summary instead.
func (e *Engine) authorize(ctx context.Context, actor auth.Session, role rbac.Role, tenant *uuid.UUID, operation string, record bool) error {
	if actor.UserID() == uuid.Nil {
		return shared.ErrUnauthenticated
	}
	allowed, reason, err := e.allowed(ctx, actor, role, tenant)
	if err != nil {
		return fmt.Errorf("roles: authorize: %w", err)
	}
	if allowed {
		return nil
	}
	meta := map[string]any{
		"operation": operation,
		"role":      string(role),
		"reason":    reason,
	}
	if tenant != nil {
		meta["tenant_id"] = tenant.String()
	}
	if record {
		e.audit.RecordAttempt(ctx, audit.Entry{
			EventType:        audit.EventRoleAssignmentDenied,
			Category:         audit.CategorySecurity,
			Severity:         audit.SeverityWarning,
			ActorID:          audit.Actor(actor.UserID()),
			TargetEntityType: audit.TargetUserRole,
			Metadata:         meta,
		})
	}
	e.logger.Warn("role management denied",
		slog.String("operation", operation),
		slog.String("actor_id", actor.UserID().String()),
		slog.String("reason", reason),
	)
	return shared.Forbidden("insufficient permissions to manage this role")
}

func (e *Engine) allowed(ctx context.Context, actor auth.Session, role rbac.Role, tenant *uuid.UUID) (bool, string, error) {
	if !actor.HasRole() {
		return false, "no active role", nil
	}
	if role.Rank() > actor.Role.Rank() {
		return false, "role outranks actor", nil
	}
	if actor.Role.IsPlatformAdmin() {
		return true, "", nil
	}
	if role.Tier() == rbac.TierPlatform {
		return false, "platform role", nil
	}
	if tenant == nil {
		return false, "platform-wide assignment", nil
	}
	ok, err := e.tenants.Administers(ctx, actor, *tenant)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "tenant not administered", nil
	}
	return true, "", nil
}

// Assign grants a role, creating, updating or reactivating the row for its key.
func (e *Engine) Assign(ctx context.Context, actor auth.Session, req AssignRequest) (Result, error) {
	ctx, span := tracer.Start(ctx, "roles.Assign")
	defer span.End()

	res, err := e.assign(ctx, actor, req, true)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("roles.outcome", string(res.Outcome)))
	if res.Outcome != OutcomeUnchanged {
		e.recordAssigned(ctx, actor, res)
	}
	return res, nil
}

func (e *Engine) assign(ctx context.Context, actor auth.Session, req AssignRequest, recordDenial bool) (Result, error) {
	in, err := e.parseAssign(req)
	if err != nil {
		return Result{}, err
	}
	if err := e.authorize(ctx, actor, in.key.Role, in.key.TenantID, "assign", recordDenial); err != nil {
		return Result{}, err
	}

	now := e.now()
	existing, err := e.repo.FindByKey(ctx, in.key)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		a := rbac.NewAssignment(in.key, in.perms, actor.UserID(), now)
		if err := e.repo.Insert(ctx, a); err != nil {
			return Result{}, err
		}
		return Result{Assignment: a, Outcome: OutcomeCreated, notes: in.notes}, nil
	case err != nil:
		return Result{}, fmt.Errorf("roles: find by key: %w", err)
	}

	outcome := OutcomeUpdated
	switch {
	case !existing.IsActive():
		if err := existing.Reactivate(actor.UserID(), now); err != nil {
			return Result{}, fmt.Errorf("roles: reactivate: %w", err)
		}
		existing.ReplacePermissions(in.perms, actor.UserID(), now)
		outcome = OutcomeReactivated
	case existing.Permissions.Equal(in.perms):
		return Result{Assignment: existing, Outcome: OutcomeUnchanged}, nil
	default:
		existing.ReplacePermissions(in.perms, actor.UserID(), now)
	}
	if err := e.repo.Update(ctx, existing); err != nil {
		return Result{}, err
	}
	return Result{Assignment: existing, Outcome: outcome, notes: in.notes}, nil
}

func (e *Engine) recordAssigned(ctx context.Context, actor auth.Session, res Result) {
	meta := assignmentMetadata(res.Assignment, string(res.Outcome))
	if res.notes != "" {
		meta["notes"] = res.notes
	}
	e.audit.Record(ctx, audit.Entry{
		EventType:        audit.EventRoleAssigned,
		Category:         audit.CategoryRoleManagement,
		Severity:         audit.SeverityInfo,
		ActorID:          audit.Actor(actor.UserID()),
		TargetEntityType: audit.TargetUserRole,
		TargetEntityID:   audit.Target(res.Assignment.ID.String()),
		Metadata:         meta,
		IsSuccess:        true,
	})
}

func assignmentMetadata(a *rbac.Assignment, outcome string) map[string]any {
	meta := map[string]any{
		"user_id": a.UserID.String(),
		"role":    string(a.Role),
		"outcome": outcome,
	}
	if a.TenantID != nil {
		meta["tenant_id"] = a.TenantID.String()
	}
	return meta
}

// load fetches an assignment and authorises actor against its role and tenant.
func (e *Engine) load(ctx context.Context, actor auth.Session, rawID, operation string) (*rbac.Assignment, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	if actor.UserID() == uuid.Nil {
		return nil, shared.ErrUnauthenticated
	}
	a, err := e.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("role assignment not found")
		}
		return nil, fmt.Errorf("roles: get: %w", err)
	}
	if err := e.authorize(ctx, actor, a.Role, a.TenantID, operation, true); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdatePermissions replaces the explicit permissions of an assignment.
func (e *Engine) UpdatePermissions(ctx context.Context, actor auth.Session, id string, permissions []string) (*rbac.Assignment, error) {
	ctx, span := tracer.Start(ctx, "roles.UpdatePermissions", trace.WithAttributes(attribute.String("roles.assignment_id", id)))
	defer span.End()

	if err := e.validator.Var(permissions, "max=100,dive,max=120"); err != nil {
		return nil, shared.Validation("too many permissions")
	}
	a, err := e.load(ctx, actor, id, "update_permissions")
	if err != nil {
		return nil, err
	}
	perms := rbac.NewPermissionSet(permissions...)
	a.ReplacePermissions(perms, actor.UserID(), e.now())
	if err := e.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	meta := assignmentMetadata(a, "updated")
	meta["permissions"] = perms.Slice()
	e.audit.Record(ctx, audit.Entry{
		EventType:        audit.EventRolePermissionsUpdated,
		Category:         audit.CategoryRoleManagement,
		Severity:         audit.SeverityInfo,
		ActorID:          audit.Actor(actor.UserID()),
		TargetEntityType: audit.TargetUserRole,
		TargetEntityID:   audit.Target(a.ID.String()),
		Metadata:         meta,
		IsSuccess:        true,
	})
	return a, nil
}

// Revoke soft-deletes an assignment. Revoking a revoked row is a no-op.
func (e *Engine) Revoke(ctx context.Context, actor auth.Session, id, reason string) (*rbac.Assignment, error) {
	ctx, span := tracer.Start(ctx, "roles.Revoke", trace.WithAttributes(attribute.String("roles.assignment_id", id)))
	defer span.End()

	reason = strings.TrimSpace(reason)
	if n := utf8.RuneCountInString(reason); reason != "" && (n < minReasonLength || n > maxReasonLength) {
		return nil, shared.Errorf(shared.ErrValidation, "reason must be between %d and %d characters", minReasonLength, maxReasonLength)
	}
	a, err := e.load(ctx, actor, id, "revoke")
	if err != nil {
		return nil, err
	}
	if !a.IsActive() {
		return a, nil
	}
	if err := a.Revoke(actor.UserID(), e.now()); err != nil {
		return nil, fmt.Errorf("roles: revoke: %w", err)
	}
	if err := e.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	meta := assignmentMetadata(a, string(OutcomeRevoked))
	if reason != "" {
		meta["reason"] = reason
	}
	e.audit.Record(ctx, audit.Entry{
		EventType:        audit.EventRoleRevoked,
		Category:         audit.CategoryRoleManagement,
		Severity:         audit.SeverityWarning,
		ActorID:          audit.Actor(actor.UserID()),
		TargetEntityType: audit.TargetUserRole,
		TargetEntityID:   audit.Target(a.ID.String()),
		Metadata:         meta,
		IsSuccess:        true,
	})
	return a, nil
}

// Reactivate restores a revoked assignment. Reactivating an active row is a no-op.
func (e *Engine) Reactivate(ctx context.Context, actor auth.Session, id string) (*rbac.Assignment, error) {
	ctx, span := tracer.Start(ctx, "roles.Reactivate", trace.WithAttributes(attribute.String("roles.assignment_id", id)))
	defer span.End()

	a, err := e.load(ctx, actor, id, "reactivate")
	if err != nil {
		return nil, err
	}
	if a.IsActive() {
		return a, nil
	}
	if err := a.Reactivate(actor.UserID(), e.now()); err != nil {
		return nil, fmt.Errorf("roles: reactivate: %w", err)
	}
	if err := e.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	e.audit.Record(ctx, audit.Entry{
		EventType:        audit.EventRoleReactivated,
		Category:         audit.CategoryRoleManagement,
		Severity:         audit.SeverityInfo,
		ActorID:          audit.Actor(actor.UserID()),
		TargetEntityType: audit.TargetUserRole,
		TargetEntityID:   audit.Target(a.ID.String()),
		Metadata:         assignmentMetadata(a, string(OutcomeReactivated)),
		IsSuccess:        true,
	})
	return a, nil
}
