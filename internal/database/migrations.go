// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/tracktarr/internal/logging"
)

// Migration is a versioned schema change. Migrations are append-only.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt time.Time
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// migrationLockID serializes migrations across replicas.
const migrationLockID = 7_262_041

func migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users", SQL: `
CREATE TABLE users (
	id                  UUID PRIMARY KEY,
	name                TEXT NOT NULL,
	media_server_id     TEXT UNIQUE,
	messaging_key       TEXT NOT NULL,
	messaging_id        TEXT NOT NULL,
	approval_message_id TEXT UNIQUE,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (messaging_key, messaging_id)
)`},
		{Version: 2, Name: "create_medias", SQL: `
CREATE TABLE medias (
	id             UUID PRIMARY KEY,
	external_id    TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL CHECK (type IN ('movie', 'episode')),
	title          TEXT NOT NULL,
	year           INTEGER,
	season_number  INTEGER NOT NULL DEFAULT -1,
	episode_number INTEGER NOT NULL DEFAULT -1,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (external_id, season_number, episode_number)
)`},
		{Version: 3, Name: "create_media_requests", SQL: `
CREATE TABLE media_requests (
	media_id   UUID PRIMARY KEY REFERENCES medias (id) ON DELETE CASCADE,
	status     TEXT NOT NULL CHECK (status IN ('pending', 'fulfilled', 'missing', 'rejected', 'canceled')),
	thread_id  TEXT UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX media_requests_status_idx ON media_requests (status)`},
		{Version: 4, Name: "create_request_users", SQL: `
CREATE TABLE request_users (
	request_id UUID NOT NULL REFERENCES media_requests (media_id) ON DELETE CASCADE,
	user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	reasons    TEXT[] NOT NULL CHECK (cardinality(reasons) > 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (request_id, user_id)
);
CREATE INDEX request_users_user_idx ON request_users (user_id)`},
		{Version: 5, Name: "create_user_activities", SQL: `
CREATE TABLE user_activities (
	user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	kind       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, kind)
)`},
	}
}

// migrate applies pending migrations, each in its own transaction.
func (db *DB) migrate(ctx context.Context) error {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID); err != nil {
			logging.Warn().Err(err).Msg("Failed to release migration lock")
		}
	}()

	if _, err := conn.Exec(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("query applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return fmt.Errorf("scan applied migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	count := 0
	for _, m := range migrations() {
		if applied[m.Version] {
			continue
		}
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration v%d (%s): %w", m.Version, m.Name, err)
		}
		count++
	}

	if count > 0 {
		logging.Info().Int("count", count).Msg("Applied database migrations")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
