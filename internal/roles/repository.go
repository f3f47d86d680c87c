package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var assignmentColumns = []string{
	"id", "user_id", "role", "salon_id", "permissions", "is_active",
	"deleted_at", "deleted_by", "created_by", "updated_by", "created_at", "updated_at",
}

// PGRepository stores assignments in the user_roles table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) selectOne(ctx context.Context, stmt sq.SelectBuilder) (*rbac.Assignment, error) {
	query, args, err := stmt.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("roles: build query: %w", err)
	}
	a, err := scanAssignment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("roles: select: %w", err)
	}
	return a, nil
}

// Get loads an assignment by id, revoked rows included.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*rbac.Assignment, error) {
	return r.selectOne(ctx, sq.Select(assignmentColumns...).From("user_roles").Where(sq.Eq{"id": id.String()}))
}

// FindByKey loads the row for (user, role, tenant). A nil tenant matches NULL.
func (r *PGRepository) FindByKey(ctx context.Context, key rbac.Key) (*rbac.Assignment, error) {
	stmt := sq.Select(assignmentColumns...).From("user_roles").
		Where(sq.Eq{"user_id": key.UserID.String(), "role": string(key.Role)})
	if key.TenantID == nil {
		stmt = stmt.Where(sq.Eq{"salon_id": nil})
	} else {
		stmt = stmt.Where(sq.Eq{"salon_id": key.TenantID.String()})
	}
	return r.selectOne(ctx, stmt)
}

// ListActiveForUser returns the active assignments of userID.
func (r *PGRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]*rbac.Assignment, error) {
	query, args, err := sq.Select(assignmentColumns...).From("user_roles").
		Where(sq.Eq{"user_id": userID.String(), "is_active": true}).
		OrderBy("created_at", "id").
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("roles: build query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("roles: list active: %w", err)
	}
	defer rows.Close()
	var out []*rbac.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("roles: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const insertAssignment = `INSERT INTO user_roles
	(id, user_id, role, salon_id, permissions, is_active, created_by, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6, $7, $7)`

// Insert stores a new active assignment.
func (r *PGRepository) Insert(ctx context.Context, a *rbac.Assignment) error {
	_, err := r.pool.Exec(ctx, insertAssignment,
		a.ID, a.UserID, string(a.Role), a.TenantID, a.Permissions.Slice(), a.CreatedBy, a.CreatedAt)
	if err != nil {
		return translateWriteError("insert", err)
	}
	return nil
}

// Update writes the mutable columns of a.
func (r *PGRepository) Update(ctx context.Context, a *rbac.Assignment) error {
	var (
		deletedAt *time.Time
		deletedBy *uuid.UUID
	)
	if a.Revocation != nil {
		at, by := a.Revocation.At, a.Revocation.By
		deletedAt, deletedBy = &at, &by
	}
	query, args, err := sq.Update("user_roles").
		SetMap(map[string]any{
			"permissions": a.Permissions.Slice(),
			"is_active":   a.State == rbac.StateActive,
			"deleted_at":  deletedAt,
			"deleted_by":  deletedBy,
			"updated_by":  a.UpdatedBy,
			"updated_at":  a.UpdatedAt,
		}).
		Where(sq.Eq{"id": a.ID.String()}).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("roles: build update: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return translateWriteError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("role assignment not found")
	}
	return nil
}

func translateWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return shared.Errorf(shared.ErrConflict, "role assignment already exists")
		case foreignKeyViolation:
			return shared.NotFound("user or tenant not found")
		}
	}
	return fmt.Errorf("roles: %s: %w", op, err)
}

func scanAssignment(row pgx.Row) (*rbac.Assignment, error) {
	var (
		a         rbac.Assignment
		role      string
		perms     []string
		active    bool
		deletedAt *time.Time
		deletedBy *uuid.UUID
	)
	if err := row.Scan(&a.ID, &a.UserID, &role, &a.TenantID, &perms, &active,
		&deletedAt, &deletedBy, &a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = rbac.Role(role)
	a.Permissions = rbac.NewPermissionSet(perms...)
	a.State = rbac.StateRevoked
	if active {
		a.State = rbac.StateActive
	}
	if deletedAt != nil && deletedBy != nil {
		a.Revocation = &rbac.Revocation{At: *deletedAt, By: *deletedBy}
	}
	return &a, nil
}

var (
	_ Repository      = (*PGRepository)(nil)
	_ auth.RoleLister = (*PGRepository)(nil)
)
