// Package store implements the persistence layer: Postgres schema
// initialization, target/check/incident repositories, and the
// reliability analytics queries.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/jmoiron/sqlx"
)

// schemaDDL creates the three tables and their indexes. It is safe to
// run on every startup: tables and indexes use IF NOT EXISTS, and the
// ALTER statements add columns introduced after the first release.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS targets (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL UNIQUE,
	interval_seconds INTEGER NOT NULL DEFAULT 60,
	timeout_seconds INTEGER NOT NULL DEFAULT 8,
	expected_substring TEXT,
	expected_json_keys TEXT,
	max_latency_ms INTEGER,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE targets ADD COLUMN IF NOT EXISTS expected_substring TEXT;
ALTER TABLE targets ADD COLUMN IF NOT EXISTS expected_json_keys TEXT;
ALTER TABLE targets ADD COLUMN IF NOT EXISTS max_latency_ms INTEGER;

CREATE TABLE IF NOT EXISTS checks (
	id BIGSERIAL PRIMARY KEY,
	target_id BIGINT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	checked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	status_code INTEGER,
	latency_ms INTEGER,
	is_up BOOLEAN NOT NULL,
	reason_code TEXT,
	error_message TEXT
);

ALTER TABLE checks ADD COLUMN IF NOT EXISTS reason_code TEXT;

CREATE TABLE IF NOT EXISTS incidents (
	id BIGSERIAL PRIMARY KEY,
	target_id BIGINT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ,
	duration_seconds INTEGER,
	is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
	reason_code TEXT,
	reason_message TEXT,
	start_check_id BIGINT REFERENCES checks(id) ON DELETE SET NULL,
	recovery_check_id BIGINT REFERENCES checks(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_checks_target_time ON checks(target_id, checked_at DESC);
CREATE INDEX IF NOT EXISTS idx_checks_checked_at ON checks(checked_at DESC);
CREATE INDEX IF NOT EXISTS idx_incidents_target_time ON incidents(target_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_incidents_open ON incidents(target_id, is_resolved);
`

// Open connects to Postgres through the pgx stdlib driver and wraps
// the handle with sqlx for struct scanning.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return sqlx.NewDb(db, "pgx"), nil
}

// InitSchema applies the schema DDL. Idempotent.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
