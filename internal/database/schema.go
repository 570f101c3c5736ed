package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS community_reports (
		id          UUID PRIMARY KEY,
		user_id     TEXT NOT NULL DEFAULT '',
		lat         DOUBLE PRECISION NOT NULL CHECK (lat BETWEEN -90 AND 90),
		lon         DOUBLE PRECISION NOT NULL CHECK (lon BETWEEN -180 AND 180),
		category    TEXT NOT NULL,
		severity    TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS community_reports_created_at_idx
		ON community_reports (created_at DESC)`,
}

// EnsureSchema creates the tables the service needs if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
