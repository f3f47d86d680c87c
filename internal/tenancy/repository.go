package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/araxson/enorae-sub010/internal/shared"
)

// Repository implements Gateway over the salons and staff tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OwnerOf returns the owner of a salon.
func (r *Repository) OwnerOf(ctx context.Context, tenantID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT owner_id FROM salons WHERE id = $1 AND deleted_at IS NULL`, tenantID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("tenancy: owner of: %w", err)
	}
	return owner, nil
}

// OwnedTenants lists salons owned by userID, oldest first.
func (r *Repository) OwnedTenants(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return r.ids(ctx, `SELECT id FROM salons
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id`, userID)
}

// StaffTenants lists salons where userID is active staff, oldest membership first.
func (r *Repository) StaffTenants(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return r.ids(ctx, `SELECT s.salon_id FROM staff s
		JOIN salons sa ON sa.id = s.salon_id AND sa.deleted_at IS NULL
		WHERE s.user_id = $1 AND s.is_active
		ORDER BY s.created_at, s.salon_id`, userID)
}

func (r *Repository) ids(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tenancy: query: %w", err)
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("tenancy: scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var _ Gateway = (*Repository)(nil)
