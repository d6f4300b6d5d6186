// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/metrics"
)

// Publisher receives decoded store notifications.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Listener holds a dedicated connection that LISTENs on the ledger channels
// and republishes every notification. Notifications sent while it is
// reconnecting are lost.
type Listener struct {
	pool      *pgxpool.Pool
	publisher Publisher
	channels  []events.Kind

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewListener creates a Listener for every store event kind.
func NewListener(pool *pgxpool.Pool, publisher Publisher) *Listener {
	return &Listener{
		pool:       pool,
		publisher:  publisher,
		channels:   events.StoreKinds(),
		minBackoff: 1 * time.Second,
		maxBackoff: 32 * time.Second,
	}
}

// Serve listens until ctx is canceled, reconnecting with exponential backoff.
func (l *Listener) Serve(ctx context.Context) error {
	delay := l.minBackoff
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logging.Warn().Err(err).Dur("delay", delay).Msg("Notification listener disconnected, reconnecting")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, l.maxBackoff)
	}
}

func (l *Listener) String() string {
	return "notification-listener"
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	// The connection carries LISTEN state; never hand it back to the pool.
	conn := pooled.Hijack()
	defer conn.Close(context.WithoutCancel(ctx)) //nolint:errcheck

	for _, ch := range l.channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{string(ch)}.Sanitize()); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	logging.Info().Int("channels", len(l.channels)).Msg("Listening for store notifications")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(ctx, n)
	}
}

func (l *Listener) dispatch(ctx context.Context, n *pgconn.Notification) {
	e, err := events.Decode(events.Kind(n.Channel), []byte(n.Payload))
	if err != nil {
		metrics.NotificationsDropped.WithLabelValues(n.Channel).Inc()
		logging.Warn().Err(err).Str("channel", n.Channel).Msg("Dropping malformed store notification")
		return
	}

	ctx = logging.ContextWithNewCorrelationID(ctx)
	if err := l.publisher.Publish(ctx, e); err != nil && !errors.Is(err, events.ErrClosed) {
		logging.Error().Err(err).Str("channel", n.Channel).Msg("Failed to publish store notification")
	}
}
