// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/tracktarr/internal/models"
)

const userColumns = `u.id, u.name, u.media_server_id, u.messaging_key, u.messaging_id, u.approval_message_id, u.created_at, u.updated_at`

// UserStore persists household members.
type UserStore struct {
	pool *pgxpool.Pool
}

func scanUser(row pgx.CollectableRow) (models.User, error) {
	var (
		u       models.User
		mediaID *string
		approve *string
	)
	err := row.Scan(&u.ID, &u.Name, &mediaID, &u.MessagingKey, &u.MessagingID, &approve, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}
	u.MediaServerID = deref(mediaID)
	u.ApprovalMessageID = deref(approve)
	return u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *UserStore) one(ctx context.Context, query string, args ...any) (*models.User, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Upsert creates the user reached at (messagingKey, messagingID) or
// renames the existing one.
func (s *UserStore) Upsert(ctx context.Context, name, messagingKey, messagingID string) (*models.User, error) {
	return s.one(ctx, `
INSERT INTO users AS u (id, name, messaging_key, messaging_id) VALUES ($1, $2, $3, $4)
ON CONFLICT (messaging_key, messaging_id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
RETURNING `+userColumns, uuid.NewString(), name, messagingKey, messagingID)
}

// Get returns a user by id.
func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	return s.one(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

// GetByApprovalMessage returns the user whose registration message is messageID.
func (s *UserStore) GetByApprovalMessage(ctx context.Context, messageID string) (*models.User, error) {
	return s.one(ctx, `SELECT `+userColumns+` FROM users u WHERE u.approval_message_id = $1`, messageID)
}

// List returns every user.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.created_at`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// ListByIDs returns the users among ids. Unknown ids are skipped.
func (s *UserStore) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ANY ($1::uuid[]) ORDER BY u.created_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users by id: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// SetMediaServerID links a user to their provisioned media-server account.
func (s *UserStore) SetMediaServerID(ctx context.Context, id, mediaServerID string) error {
	return s.update(ctx, `UPDATE users SET media_server_id = $2, updated_at = now() WHERE id = $1`, id, mediaServerID)
}

// SetApprovalMessageID records the admin message used to approve the user.
func (s *UserStore) SetApprovalMessageID(ctx context.Context, id, messageID string) error {
	return s.update(ctx, `UPDATE users SET approval_message_id = $2, updated_at = now() WHERE id = $1`, id, nullable(messageID))
}

func (s *UserStore) update(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
