package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/araxson/enorae-sub010/internal/audit"
	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/ratelimit"
	"github.com/araxson/enorae-sub010/internal/shared"
)

// BulkOperation names the rate limit bucket and audit event of bulk grants.
const BulkOperation = "role_bulk_assignment"

// BulkMaxItems is the default bound on the size of one bulk request.
const BulkMaxItems = 100

// Limiter admits or rejects a call for a rate limit key.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// BulkAssign applies items sequentially. Per-item failures are collected and
// one summary audit entry replaces the per-item entries.
func (e *Engine) BulkAssign(ctx context.Context, limiter Limiter, actor auth.Session, items []AssignRequest) (BulkResult, error) {
	ctx, span := tracer.Start(ctx, "roles.BulkAssign")
	defer span.End()

	if actor.UserID() == uuid.Nil {
		return BulkResult{}, shared.ErrUnauthenticated
	}
	decision, err := limiter.Allow(ctx, ratelimit.Key(actor.UserID(), BulkOperation))
	if err != nil {
		return BulkResult{}, fmt.Errorf("roles: bulk rate limit: %w", err)
	}
	if !decision.Allowed {
		return BulkResult{}, shared.Errorf(shared.ErrRateLimited,
			"too many bulk assignments, try again in %s", decision.ResetIn.Round(time.Second))
	}
	if len(items) == 0 {
		return BulkResult{}, shared.Validation("at least one assignment is required")
	}
	if len(items) > e.bulkMax {
		return BulkResult{}, shared.Errorf(shared.ErrValidation, "at most %d assignments per request", e.bulkMax)
	}

	result := BulkResult{Errors: []string{}}
	denied := 0
	for _, item := range items {
		if _, err := e.assign(ctx, actor, item, false); err != nil {
			if errors.Is(err, shared.ErrForbidden) {
				denied++
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", item.UserID, shared.UserSafeMessage(err)))
			if shared.KindOf(err) == nil {
				e.logger.Error("bulk assignment item failed",
					slog.String("user_id", item.UserID),
					slog.Any("error", err),
				)
			}
			continue
		}
		result.Succeeded++
	}
	span.SetAttributes(
		attribute.Int("roles.bulk.succeeded", result.Succeeded),
		attribute.Int("roles.bulk.failed", result.Failed),
	)

	e.audit.Record(ctx, audit.Entry{
		EventType:        audit.EventRoleBulkAssignment,
		Category:         audit.CategoryRoleManagement,
		Severity:         audit.SeverityWarning,
		ActorID:          audit.Actor(actor.UserID()),
		TargetEntityType: audit.TargetUserRole,
		Metadata: map[string]any{
			"total":     len(items),
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
			"denied":    denied,
			"errors":    result.Errors,
		},
		IsSuccess: result.Failed == 0,
	})
	return result, nil
}
