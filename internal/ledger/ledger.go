// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/metrics"
	"github.com/tomtom215/tracktarr/internal/models"
)

// Ledger reconciles wanted medias and library contents with stored requests.
type Ledger struct {
	store Store
}

// New creates a Ledger backed by store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// SyncResult counts the rows changed by a targeted sync.
type SyncResult struct {
	Created  int // requests inserted
	Joined   int // users newly attached to a request
	Left     int // users detached from a surviving request
	Deleted  int // requests removed with their last user
	Reopened int // requests moved back to pending
	Invalid  int // wanted medias rejected by validation
}

// Changed reports whether any row was written.
func (r SyncResult) Changed() bool {
	return r.Created+r.Joined+r.Left+r.Deleted+r.Reopened > 0
}

// SyncTargeted reconciles the wanted medias of (userID, kind) with the
// requests attributed to that pair. The whole batch runs in one transaction.
// Calling it again with the same desired medias writes nothing.
func (l *Ledger) SyncTargeted(ctx context.Context, userID string, kind models.Kind, desired []media.Info) (SyncResult, error) {
	existing, err := l.store.ListByUserAndKind(ctx, userID, kind)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list requests of user %s for %s: %w", userID, kind, err)
	}

	diff := Plan(existing, desired)
	result := SyncResult{Invalid: len(diff.Invalid)}
	for _, info := range diff.Invalid {
		logging.Warn().
			Str("user_id", userID).
			Str("kind", string(kind)).
			Str("media", info.Label()).
			Msg("Ignoring invalid wanted media")
	}
	if diff.Empty() {
		return result, nil
	}

	err = l.store.WithTx(ctx, func(tx Tx) error {
		result = SyncResult{Invalid: len(diff.Invalid)}
		if err := l.link(ctx, tx, userID, kind, diff.ToAdd, &result); err != nil {
			return err
		}
		return l.unlink(ctx, tx, userID, kind, diff.ToRemove, &result)
	})
	if err != nil {
		metrics.LedgerTransactionErrors.WithLabelValues("sync_targeted").Inc()
		return SyncResult{}, fmt.Errorf("sync %s requests of user %s: %w", kind, userID, err)
	}

	metrics.RecordLedgerMutations("created", result.Created)
	metrics.RecordLedgerMutations("joined", result.Joined)
	metrics.RecordLedgerMutations("left", result.Left)
	metrics.RecordLedgerMutations("deleted", result.Deleted)
	metrics.RecordLedgerMutations("reopened", result.Reopened)
	return result, nil
}

// link inserts missing requests, then attaches the user with kind as reason.
func (l *Ledger) link(ctx context.Context, tx Tx, userID string, kind models.Kind, toAdd []media.Info, result *SyncResult) error {
	requests := make([]*models.Request, 0, len(toAdd))
	for _, info := range toAdd {
		m, err := tx.UpsertMedia(ctx, info)
		if err != nil {
			return fmt.Errorf("upsert media %s: %w", media.Identify(info), err)
		}
		req, created, err := tx.InsertRequest(ctx, m.ID, models.StatusPending)
		if err != nil {
			return fmt.Errorf("insert request for media %s: %w", m.ID, err)
		}
		if created {
			result.Created++
			if err := tx.Notify(ctx, events.RequestCreated{RequestID: req.ID()}); err != nil {
				return err
			}
		}
		requests = append(requests, req)
	}

	for _, req := range requests {
		ru, err := tx.GetRequestUser(ctx, req.ID(), userID)
		if err != nil {
			return fmt.Errorf("get request user %s/%s: %w", req.ID(), userID, err)
		}

		newUser := ru == nil
		var reasons []models.Kind
		if !newUser {
			reasons = ru.Reasons
		}
		if err := tx.UpsertRequestUser(ctx, req.ID(), userID, models.WithReason(reasons, kind)); err != nil {
			return fmt.Errorf("link user %s to request %s: %w", userID, req.ID(), err)
		}
		if newUser {
			result.Joined++
			if err := tx.Notify(ctx, events.UserJoinedRequest{RequestID: req.ID(), UserID: userID}); err != nil {
				return err
			}
		}

		if reopens(req.Status, newUser) {
			if err := setStatus(ctx, tx, req.ID(), req.Status, models.StatusPending); err != nil {
				return err
			}
			result.Reopened++
		}
	}
	return nil
}

// unlink removes kind from the user's reasons. A request left without users
// while tracked is deleted without notice.
func (l *Ledger) unlink(ctx context.Context, tx Tx, userID string, kind models.Kind, toRemove []models.Request, result *SyncResult) error {
	for _, req := range toRemove {
		id := req.ID()
		ru, err := tx.GetRequestUser(ctx, id, userID)
		if err != nil {
			return fmt.Errorf("get request user %s/%s: %w", id, userID, err)
		}
		if ru == nil {
			continue
		}

		reasons := models.WithoutReason(ru.Reasons, kind)
		if len(reasons) > 0 {
			if err := tx.UpsertRequestUser(ctx, id, userID, reasons); err != nil {
				return fmt.Errorf("unlink %s from request %s: %w", kind, id, err)
			}
			continue
		}

		if err := tx.DeleteRequestUser(ctx, id, userID); err != nil {
			return fmt.Errorf("detach user %s from request %s: %w", userID, id, err)
		}

		remaining, err := tx.CountRequestUsers(ctx, id)
		if err != nil {
			return fmt.Errorf("count users of request %s: %w", id, err)
		}

		current, err := tx.GetRequest(ctx, id)
		if err != nil {
			return fmt.Errorf("get request %s: %w", id, err)
		}
		if remaining == 0 && current.Status.Tracked() {
			if err := tx.DeleteRequest(ctx, id); err != nil {
				return fmt.Errorf("delete request %s: %w", id, err)
			}
			result.Deleted++
			continue
		}

		result.Left++
		if err := tx.Notify(ctx, events.UserLeftRequest{RequestID: id, UserID: userID}); err != nil {
			return err
		}
	}
	return nil
}

// SyncCollected marks tracked requests whose media is in the library as
// fulfilled. Library items without a tracked request are ignored. It
// returns the number of fulfilled requests.
func (l *Ledger) SyncCollected(ctx context.Context, items []media.Info) (int, error) {
	tracked, err := l.store.ListByStatus(ctx, models.StatusPending, models.StatusMissing)
	if err != nil {
		return 0, fmt.Errorf("list tracked requests: %w", err)
	}
	if len(tracked) == 0 || len(items) == 0 {
		return 0, nil
	}

	library := make(map[media.Key]struct{}, len(items))
	for _, info := range items {
		library[media.Identify(info)] = struct{}{}
	}

	var matched []string
	for _, req := range tracked {
		if req.Media == nil {
			continue
		}
		if _, ok := library[media.Identify(req.Media.Info)]; ok {
			matched = append(matched, req.ID())
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	fulfilled := 0
	err = l.store.WithTx(ctx, func(tx Tx) error {
		fulfilled = 0
		for _, id := range matched {
			current, err := tx.GetRequest(ctx, id)
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get request %s: %w", id, err)
			}
			// Re-checked under lock; an admin may have rejected it meanwhile.
			if !current.Status.Tracked() {
				continue
			}
			if err := setStatus(ctx, tx, id, current.Status, models.StatusFulfilled); err != nil {
				return err
			}
			fulfilled++
		}
		return nil
	})
	if err != nil {
		metrics.LedgerTransactionErrors.WithLabelValues("sync_collected").Inc()
		return 0, fmt.Errorf("sync collected medias: %w", err)
	}

	metrics.RecordLedgerMutations("fulfilled", fulfilled)
	return fulfilled, nil
}

// SetStatus moves a request to status. Setting the current status is a
// no-op. Disallowed moves return ErrInvalidTransition.
func (l *Ledger) SetStatus(ctx context.Context, requestID string, status models.Status) error {
	err := l.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetRequest(ctx, requestID)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		if err != nil {
			return fmt.Errorf("get request %s: %w", requestID, err)
		}
		if current.Status == status {
			return nil
		}
		if !CanTransition(current.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
		}
		return setStatus(ctx, tx, requestID, current.Status, status)
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, ErrRequestNotFound) {
			metrics.LedgerTransactionErrors.WithLabelValues("set_status").Inc()
		}
		return err
	}
	metrics.RecordLedgerMutations("status", 1)
	return nil
}

func setStatus(ctx context.Context, tx Tx, id string, from, to models.Status) error {
	if err := tx.UpdateStatus(ctx, id, to); err != nil {
		return fmt.Errorf("update status of request %s: %w", id, err)
	}
	return tx.Notify(ctx, events.RequestStatusChanged{RequestID: id, OldStatus: from, NewStatus: to})
}

// AttachThread records the admin thread opened for a request.
func (l *Ledger) AttachThread(ctx context.Context, requestID, threadID string) error {
	if err := l.store.AttachThread(ctx, requestID, threadID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		return fmt.Errorf("attach thread to request %s: %w", requestID, err)
	}
	return nil
}

// Get returns a request with its media and users.
func (l *Ledger) Get(ctx context.Context, requestID string) (*models.Request, error) {
	req, err := l.store.GetRequest(ctx, requestID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	return req, err
}

// GetByThread returns the request whose admin thread or head message is threadID.
func (l *Ledger) GetByThread(ctx context.Context, threadID string) (*models.Request, error) {
	req, err := l.store.GetRequestByThread(ctx, threadID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: thread %s", ErrRequestNotFound, threadID)
	}
	return req, err
}
