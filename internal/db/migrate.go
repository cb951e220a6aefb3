package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the two tables on boot if they are missing. Statements
// are idempotent so repeated starts are safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			email              TEXT NOT NULL UNIQUE,
			password_hash      TEXT NOT NULL,
			refresh_token_hash TEXT,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT,
			status      TEXT NOT NULL DEFAULT 'PENDING'
			            CHECK (status IN ('PENDING', 'IN_PROGRESS', 'COMPLETED')),
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_created
			ON tasks (user_id, created_at DESC, id DESC)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
