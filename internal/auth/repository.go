package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/araxson/enorae-sub010/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUser = `SELECT id, email, password_hash, is_active, created_at, updated_at FROM users`

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, selectUser+` WHERE lower(email) = lower($1)`, email))
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *PGRepository) scanOne(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: scan user: %w", err)
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
