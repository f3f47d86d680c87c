//go:build integration

package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/araxson/enorae-sub010/internal/platform/db"
	"github.com/araxson/enorae-sub010/internal/platform/db/dbtest"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	pool := dbtest.Start(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (id, email, password_hash) VALUES ($1, 'gone@example.com', 'x')`, uuid.New())
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email = 'gone@example.com'`).Scan(&n))
	assert.Zero(t, n)

	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (id, email, password_hash) VALUES ($1, 'kept@example.com', 'x')`, uuid.New())
		return err
	})
	require.NoError(t, err)
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email = 'kept@example.com'`).Scan(&n))
	assert.Equal(t, 1, n)
}
