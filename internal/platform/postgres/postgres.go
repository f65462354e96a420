// Package postgres opens the database used by the Postgres-backed stores and
// applies the schema they expect.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects with lib/pq and verifies the connection.
// Returns nil if the URL is empty (Postgres not configured).
func Open(ctx context.Context, url string) (*sql.DB, error) {
	if url == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS policy_records (
	id            NUMERIC(20, 0) PRIMARY KEY,
	module_ref    TEXT NOT NULL,
	allow_list    BOOLEAN NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	reverse_logic BOOLEAN NOT NULL,
	enabled       BOOLEAN NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS lists (
	ref        TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS list_members (
	list_ref TEXT NOT NULL REFERENCES lists(ref) ON DELETE CASCADE,
	address  TEXT NOT NULL,
	PRIMARY KEY (list_ref, address)
);

CREATE TABLE IF NOT EXISTS audit_events (
	id         UUID PRIMARY KEY,
	category   TEXT NOT NULL,
	timestamp  TIMESTAMPTZ NOT NULL,
	subject    TEXT NOT NULL,
	action     TEXT NOT NULL,
	decision   TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	actor_id   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject, timestamp);
`

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
