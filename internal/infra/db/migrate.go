package db

import (
	"context"
	"database/sql"
	"fmt"
)

var upStatements = []string{
	`CREATE TABLE IF NOT EXISTS listings (
    id            TEXT PRIMARY KEY,
    source_name   TEXT NOT NULL,
    title         TEXT NOT NULL,
    organization  TEXT NOT NULL DEFAULT '',
    location_text TEXT NOT NULL DEFAULT '',
    url           TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    salary_text   TEXT NOT NULL DEFAULT '',
    job_type      TEXT NOT NULL DEFAULT '',
    score         INTEGER NOT NULL DEFAULT 0,
    posted_at     TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_source_name ON listings(source_name)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_posted_at ON listings(posted_at DESC)`,
}

// MigrateUp creates the listings schema. It is idempotent.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	for _, stmt := range upStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	}
	return nil
}

// MigrateDown drops the listings schema and all saved listings.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{
		`DROP INDEX IF EXISTS idx_listings_posted_at`,
		`DROP INDEX IF EXISTS idx_listings_source_name`,
		`DROP TABLE IF EXISTS listings`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	}
	return nil
}
