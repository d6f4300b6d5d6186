// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package database

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
)

// Row scanners validate enumerated columns so that a corrupted row fails
// here rather than deeper in the ledger.

const mediaColumns = `m.id, m.external_id, m.type, m.title, COALESCE(m.year, 0), m.season_number, m.episode_number, m.created_at, m.updated_at`

const requestColumns = `r.media_id, r.status, COALESCE(r.thread_id, ''), r.created_at, r.updated_at`

func scanMedia(row pgx.Row) (models.Media, error) {
	var (
		m              models.Media
		typ            string
		season, number int
	)
	if err := row.Scan(&m.ID, &m.ExternalID, &typ, &m.Title, &m.Year, &season, &number, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return models.Media{}, err
	}
	return finishMedia(m, typ, season, number)
}

func finishMedia(m models.Media, typ string, season, episode int) (models.Media, error) {
	t, err := media.ParseType(typ)
	if err != nil {
		return models.Media{}, fmt.Errorf("media %s: %w", m.ID, err)
	}
	m.Type = t
	if t == media.TypeEpisode {
		m.Season, m.Episode = &season, &episode
	}
	if err := m.Validate(); err != nil {
		return models.Media{}, fmt.Errorf("media %s: %w", m.ID, err)
	}
	return m, nil
}

// scanRequestWithMedia scans requestColumns followed by mediaColumns.
func scanRequestWithMedia(row pgx.CollectableRow) (models.Request, error) {
	var (
		req             models.Request
		status          string
		m               models.Media
		typ             string
		season, episode int
	)
	err := row.Scan(
		&req.MediaID, &status, &req.ThreadID, &req.CreatedAt, &req.UpdatedAt,
		&m.ID, &m.ExternalID, &typ, &m.Title, &m.Year, &season, &episode, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return models.Request{}, err
	}
	if req.Status, err = models.ParseStatus(status); err != nil {
		return models.Request{}, fmt.Errorf("request %s: %w", req.MediaID, err)
	}
	if m, err = finishMedia(m, typ, season, episode); err != nil {
		return models.Request{}, err
	}
	req.Media = &m
	return req, nil
}

func scanRequest(row pgx.Row) (models.Request, error) {
	var (
		req    models.Request
		status string
	)
	if err := row.Scan(&req.MediaID, &status, &req.ThreadID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return models.Request{}, err
	}
	var err error
	if req.Status, err = models.ParseStatus(status); err != nil {
		return models.Request{}, fmt.Errorf("request %s: %w", req.MediaID, err)
	}
	return req, nil
}

func parseReasons(raw []string) ([]models.Kind, error) {
	reasons := make([]models.Kind, 0, len(raw))
	for _, r := range raw {
		k, err := models.ParseKind(r)
		if err != nil {
			return nil, err
		}
		reasons = append(reasons, k)
	}
	return reasons, nil
}

func formatReasons(reasons []models.Kind) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}

// nullable returns nil for the zero value so it is stored as NULL.
func nullable[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func now() time.Time {
	return time.Now().UTC()
}
