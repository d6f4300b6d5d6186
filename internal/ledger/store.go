// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package ledger

import (
	"context"

	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
)

// Store is the persistence the ledger needs. Lookups that find nothing
// return an error wrapping models.ErrNotFound.
type Store interface {
	// ListByUserAndKind returns the requests whose RequestUser row for
	// userID carries kind, with Media populated.
	ListByUserAndKind(ctx context.Context, userID string, kind models.Kind) ([]models.Request, error)

	// ListByStatus returns the requests in any of statuses, with Media populated.
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.Request, error)

	// GetRequest returns a request with Media and Users populated.
	GetRequest(ctx context.Context, id string) (*models.Request, error)

	// GetRequestByThread returns the request whose admin thread is threadID.
	GetRequestByThread(ctx context.Context, threadID string) (*models.Request, error)

	// AttachThread stores the admin thread id of a request.
	AttachThread(ctx context.Context, requestID, threadID string) error

	// WithTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of statements the ledger runs inside a transaction.
type Tx interface {
	// UpsertMedia inserts the media or refreshes its title and year.
	UpsertMedia(ctx context.Context, info media.Info) (*models.Media, error)

	// GetRequest locks and returns a request without relations.
	GetRequest(ctx context.Context, id string) (*models.Request, error)

	// InsertRequest creates the request of mediaID with status unless one
	// exists. created is false when the existing row was returned.
	InsertRequest(ctx context.Context, mediaID string, status models.Status) (req *models.Request, created bool, err error)

	UpdateStatus(ctx context.Context, requestID string, status models.Status) error
	DeleteRequest(ctx context.Context, requestID string) error

	// GetRequestUser returns the join row, or nil when the user is not attached.
	GetRequestUser(ctx context.Context, requestID, userID string) (*models.RequestUser, error)

	UpsertRequestUser(ctx context.Context, requestID, userID string, reasons []models.Kind) error
	DeleteRequestUser(ctx context.Context, requestID, userID string) error
	CountRequestUsers(ctx context.Context, requestID string) (int, error)

	// Notify queues e for publication on commit.
	Notify(ctx context.Context, e events.Event) error
}
