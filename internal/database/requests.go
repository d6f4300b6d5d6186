// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/ledger"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
)

// RequestStore persists medias, requests and their attribution.
type RequestStore struct {
	pool *pgxpool.Pool
}

var _ ledger.Store = (*RequestStore)(nil)

const selectRequestWithMedia = `SELECT ` + requestColumns + `, ` + mediaColumns + `
FROM media_requests r JOIN medias m ON m.id = r.media_id`

// ListByUserAndKind returns the requests attributed to userID for kind.
func (s *RequestStore) ListByUserAndKind(ctx context.Context, userID string, kind models.Kind) ([]models.Request, error) {
	rows, err := s.pool.Query(ctx, selectRequestWithMedia+`
JOIN request_users ru ON ru.request_id = r.media_id
WHERE ru.user_id = $1 AND $2 = ANY (ru.reasons)
ORDER BY r.created_at`, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query requests by user and kind: %w", err)
	}
	return pgx.CollectRows(rows, scanRequestWithMedia)
}

// ListByStatus returns the requests in any of statuses.
func (s *RequestStore) ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.Request, error) {
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	rows, err := s.pool.Query(ctx, selectRequestWithMedia+`
WHERE r.status = ANY ($1)
ORDER BY r.created_at`, values)
	if err != nil {
		return nil, fmt.Errorf("query requests by status: %w", err)
	}
	return pgx.CollectRows(rows, scanRequestWithMedia)
}

// GetRequest returns a request with its media and users.
func (s *RequestStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	return s.getRequest(ctx, selectRequestWithMedia+` WHERE r.media_id = $1`, id)
}

// GetRequestByThread returns the request whose admin thread is threadID.
func (s *RequestStore) GetRequestByThread(ctx context.Context, threadID string) (*models.Request, error) {
	return s.getRequest(ctx, selectRequestWithMedia+` WHERE r.thread_id = $1`, threadID)
}

func (s *RequestStore) getRequest(ctx context.Context, query string, arg string) (*models.Request, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	req, err := pgx.CollectExactlyOneRow(rows, scanRequestWithMedia)
	if err != nil {
		return nil, notFound(err)
	}

	users, err := s.requestUsers(ctx, req.MediaID)
	if err != nil {
		return nil, err
	}
	req.Users = users
	return &req, nil
}

func (s *RequestStore) requestUsers(ctx context.Context, requestID string) ([]models.RequestUser, error) {
	rows, err := s.pool.Query(ctx, `
SELECT ru.request_id, ru.user_id, ru.reasons, ru.created_at, ru.updated_at, `+userColumns+`
FROM request_users ru JOIN users u ON u.id = ru.user_id
WHERE ru.request_id = $1
ORDER BY ru.created_at`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query request users: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RequestUser, error) {
		var (
			ru      models.RequestUser
			reasons []string
			u       models.User
			mediaID *string
			approve *string
		)
		err := row.Scan(&ru.RequestID, &ru.UserID, &reasons, &ru.CreatedAt, &ru.UpdatedAt,
			&u.ID, &u.Name, &mediaID, &u.MessagingKey, &u.MessagingID, &approve, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return models.RequestUser{}, err
		}
		if ru.Reasons, err = parseReasons(reasons); err != nil {
			return models.RequestUser{}, fmt.Errorf("request user %s/%s: %w", ru.RequestID, ru.UserID, err)
		}
		u.MediaServerID = deref(mediaID)
		u.ApprovalMessageID = deref(approve)
		ru.User = &u
		return ru, nil
	})
}

// AttachThread stores the admin thread id of a request.
func (s *RequestStore) AttachThread(ctx context.Context, requestID, threadID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE media_requests SET thread_id = $2, updated_at = $3 WHERE media_id = $1`,
		requestID, threadID, now())
	if err != nil {
		return fmt.Errorf("update thread id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// WithTx runs fn inside a transaction.
func (s *RequestStore) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&requestTx{tx: tx})
	})
}

type requestTx struct {
	tx pgx.Tx
}

func (t *requestTx) UpsertMedia(ctx context.Context, info media.Info) (*models.Media, error) {
	row := t.tx.QueryRow(ctx, `
INSERT INTO medias AS m (id, external_id, type, title, year, season_number, episode_number)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (external_id, season_number, episode_number) DO UPDATE
SET title = EXCLUDED.title, year = EXCLUDED.year, updated_at = now()
WHERE m.title IS DISTINCT FROM EXCLUDED.title OR m.year IS DISTINCT FROM EXCLUDED.year
RETURNING `+mediaColumns,
		uuid.NewString(), info.ExternalID, string(info.Type), info.Title, nullable(info.Year),
		info.SeasonNumber(), info.EpisodeNumber())

	m, err := scanMedia(row)
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Unchanged conflicting rows are not returned by the upsert.
	key := media.Identify(info)
	m, err = scanMedia(t.tx.QueryRow(ctx, `SELECT `+mediaColumns+` FROM medias m
WHERE m.external_id = $1 AND m.season_number = $2 AND m.episode_number = $3`,
		key.ExternalID, key.Season, key.Episode))
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (t *requestTx) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM media_requests r WHERE r.media_id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (t *requestTx) InsertRequest(ctx context.Context, mediaID string, status models.Status) (*models.Request, bool, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx, `
INSERT INTO media_requests AS r (media_id, status) VALUES ($1, $2)
ON CONFLICT (media_id) DO NOTHING
RETURNING `+requestColumns, mediaID, string(status)))
	if err == nil {
		return &req, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	existing, err := t.GetRequest(ctx, mediaID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (t *requestTx) UpdateStatus(ctx context.Context, requestID string, status models.Status) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE media_requests SET status = $2, updated_at = now() WHERE media_id = $1`,
		requestID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *requestTx) DeleteRequest(ctx context.Context, requestID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM media_requests WHERE media_id = $1`, requestID)
	return err
}

func (t *requestTx) GetRequestUser(ctx context.Context, requestID, userID string) (*models.RequestUser, error) {
	var (
		ru      models.RequestUser
		reasons []string
	)
	err := t.tx.QueryRow(ctx, `
SELECT request_id, user_id, reasons, created_at, updated_at
FROM request_users WHERE request_id = $1 AND user_id = $2`, requestID, userID).
		Scan(&ru.RequestID, &ru.UserID, &reasons, &ru.CreatedAt, &ru.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ru.Reasons, err = parseReasons(reasons); err != nil {
		return nil, fmt.Errorf("request user %s/%s: %w", requestID, userID, err)
	}
	return &ru, nil
}

func (t *requestTx) UpsertRequestUser(ctx context.Context, requestID, userID string, reasons []models.Kind) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO request_users (request_id, user_id, reasons) VALUES ($1, $2, $3)
ON CONFLICT (request_id, user_id) DO UPDATE SET reasons = EXCLUDED.reasons, updated_at = now()`,
		requestID, userID, formatReasons(reasons))
	return err
}

func (t *requestTx) DeleteRequestUser(ctx context.Context, requestID, userID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM request_users WHERE request_id = $1 AND user_id = $2`, requestID, userID)
	return err
}

func (t *requestTx) CountRequestUsers(ctx context.Context, requestID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM request_users WHERE request_id = $1`, requestID).Scan(&n)
	return n, err
}

// Notify sends e on the channel named after its kind. PostgreSQL delivers
// it to listeners when the transaction commits.
func (t *requestTx) Notify(ctx context.Context, e events.Event) error {
	payload, err := events.Encode(e)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `SELECT pg_notify($1, $2)`, string(e.Kind()), string(payload)); err != nil {
		return fmt.Errorf("notify %s: %w", e.Kind(), err)
	}
	return nil
}
