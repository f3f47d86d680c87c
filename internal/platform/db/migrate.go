package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/araxson/enorae-sub010/migrations"
)

// Migrate applies every pending migration embedded in the migrations package.
func Migrate(dsn string) error {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("platform/db: open: %w", err)
	}
	defer conn.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/db: dialect: %w", err)
	}
	if err := goose.Up(conn, "."); err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
		return fmt.Errorf("platform/db: migrate: %w", err)
	}
	return nil
}
