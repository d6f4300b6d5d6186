// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/metrics"
)

// DefaultDebounce is the quiet period before a recipient's batch is sent.
const DefaultDebounce = 60 * time.Second

const sendTimeout = 30 * time.Second

// Timer is a stoppable pending call.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// BatchSender delivers one recipient's merged updates.
type BatchSender func(ctx context.Context, to string, updates []Update) error

type batch struct {
	updates []Update
	index   map[string]int
	timer   Timer
	gen     uint64
}

// EmailBatcher debounces request updates per recipient. Every Enqueue
// restarts the recipient's window; a later update of the same request
// replaces the queued one. Batches still pending when the process dies
// are lost.
type EmailBatcher struct {
	send   BatchSender
	window time.Duration
	clock  Clock

	mu      sync.Mutex
	pending map[string]*batch
	gen     uint64
	stopped bool
	wg      sync.WaitGroup
}

// NewEmailBatcher creates a batcher. A non-positive window uses
// DefaultDebounce.
func NewEmailBatcher(send BatchSender, window time.Duration) *EmailBatcher {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &EmailBatcher{
		send:    send,
		window:  window,
		clock:   realClock{},
		pending: make(map[string]*batch),
	}
}

// Enqueue adds u to the batch of to and restarts its window.
func (b *EmailBatcher) Enqueue(to string, u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		logging.Warn().Str("to", to).Str("request_id", u.RequestID).Msg("Email batcher stopped, dropping update")
		return
	}

	q, ok := b.pending[to]
	if !ok {
		q = &batch{index: make(map[string]int)}
		b.pending[to] = q
	}
	if i, ok := q.index[u.RequestID]; ok {
		q.updates[i] = u
	} else {
		q.index[u.RequestID] = len(q.updates)
		q.updates = append(q.updates, u)
	}

	if q.timer != nil {
		q.timer.Stop()
	}
	b.gen++
	gen := b.gen
	q.gen = gen
	q.timer = b.clock.AfterFunc(b.window, func() { b.fire(to, gen) })
}

// Pending returns the number of queued updates for to.
func (b *EmailBatcher) Pending(to string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.pending[to]; ok {
		return len(q.updates)
	}
	return 0
}

// fire sends the batch of to if gen is still its latest window.
func (b *EmailBatcher) fire(to string, gen uint64) {
	b.mu.Lock()
	q, ok := b.pending[to]
	if !ok || q.gen != gen || b.stopped {
		b.mu.Unlock()
		return
	}
	delete(b.pending, to)
	b.wg.Add(1)
	b.mu.Unlock()
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	b.deliver(ctx, to, q.updates)
}

func (b *EmailBatcher) deliver(ctx context.Context, to string, updates []Update) {
	metrics.EmailBatchSize.Observe(float64(len(updates)))
	err := b.send(ctx, to, updates)
	metrics.RecordMessage("email", err)
	if err != nil {
		logging.Error().Err(err).Str("to", to).Int("updates", len(updates)).Msg("Failed to send request update email")
		return
	}
	logging.Debug().Str("to", to).Int("updates", len(updates)).Msg("Request update email sent")
}

// Flush sends every pending batch now.
func (b *EmailBatcher) Flush(ctx context.Context) {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[string]*batch)
	for _, q := range pending {
		if q.timer != nil {
			q.timer.Stop()
		}
	}
	b.mu.Unlock()

	for to, q := range pending {
		b.deliver(ctx, to, q.updates)
	}
}

// Stop cancels every pending window, drops their batches and waits for
// in-flight sends. Later Enqueue calls are dropped.
func (b *EmailBatcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	for to, q := range b.pending {
		if q.timer != nil {
			q.timer.Stop()
		}
		delete(b.pending, to)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

// Serve blocks until ctx is canceled, then flushes and stops the batcher.
func (b *EmailBatcher) Serve(ctx context.Context) error {
	<-ctx.Done()
	flushCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	b.Flush(flushCtx)
	b.Stop()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (b *EmailBatcher) String() string {
	return "email-batcher"
}
