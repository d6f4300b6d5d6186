// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/tracktarr/internal/models"
)

// CursorStore persists the last successful sync time per (user, kind).
type CursorStore struct {
	pool *pgxpool.Pool
}

// Cursors returns the stored cursors of userID keyed by kind. Unknown kinds
// left by older versions are skipped.
func (s *CursorStore) Cursors(ctx context.Context, userID string) (map[models.Kind]time.Time, error) {
	rows, err := s.pool.Query(ctx, `SELECT kind, updated_at FROM user_activities WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cursors: %w", err)
	}
	defer rows.Close()

	cursors := make(map[models.Kind]time.Time)
	for rows.Next() {
		var (
			kind string
			at   time.Time
		)
		if err := rows.Scan(&kind, &at); err != nil {
			return nil, fmt.Errorf("scan cursor: %w", err)
		}
		k, err := models.ParseKind(kind)
		if err != nil {
			continue
		}
		cursors[k] = at
	}
	return cursors, rows.Err()
}

// Advance moves the cursor of (userID, kind) to at. A cursor never moves
// backwards.
func (s *CursorStore) Advance(ctx context.Context, userID string, kind models.Kind, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO user_activities (user_id, kind, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (user_id, kind) DO UPDATE
SET updated_at = GREATEST(user_activities.updated_at, EXCLUDED.updated_at)`,
		userID, string(kind), at)
	if err != nil {
		return fmt.Errorf("advance cursor %s/%s: %w", userID, kind, err)
	}
	return nil
}
