// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

// Package events is the in-process change bus between the request ledger
// and its side effects.
//
// Publishers hand typed events to the Bus; subscribers register a handler for
// one payload type and receive a Disposer for teardown. Each Kind is a
// watermill topic on a gochannel pub/sub. Delivery is at-most-once: a message
// is acknowledged on receipt, before the handler runs. Within one Kind,
// every subscriber sees events in publish order; there is no ordering across
// Kinds.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/metrics"
)

// ErrClosed is returned when publishing or subscribing on a closed Bus.
var ErrClosed = errors.New("event bus closed")

const correlationMetadataKey = "correlation_id"

// BusConfig configures a Bus.
type BusConfig struct {
	// SubscriberBuffer is the number of received events a slow subscriber
	// may hold before publishers block. Default 256.
	SubscriberBuffer int

	// Logger receives watermill's internal logs. Defaults to the global
	// zerolog logger through the slog adapter.
	Logger watermill.LoggerAdapter
}

// Bus is a typed publish/subscribe hub.
type Bus struct {
	pubsub *gochannel.GoChannel
	buffer int

	mu     sync.RWMutex
	closed bool
	subs   sync.WaitGroup
}

// NewBus creates a Bus.
func NewBus(cfg BusConfig) *Bus {
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}
	return &Bus{
		// Publish blocks until every subscriber has received the message,
		// which is what keeps per-kind ordering intact.
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            int64(cfg.SubscriberBuffer),
			BlockPublishUntilSubscriberAck: true,
		}, cfg.Logger),
		buffer: cfg.SubscriberBuffer,
	}
}

// Publish sends e to every current subscriber of its kind. Events published
// before a subscriber registers are not replayed.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	payload, err := Encode(e)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(correlationMetadataKey, id)
	}

	if err := b.pubsub.Publish(string(e.Kind()), msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind(), err)
	}
	metrics.EventsPublished.WithLabelValues(string(e.Kind())).Inc()
	return nil
}

// Handler processes one event. A returned error is logged; the event is not
// redelivered.
type Handler[E Event] func(ctx context.Context, e E) error

// Disposer stops a subscription and waits for its in-flight handler to
// return. Calling it more than once is safe.
type Disposer func()

// Subscribe registers handler for every event of type E. The name labels
// logs and metrics.
func Subscribe[E Event](b *Bus, name string, handler Handler[E]) (Disposer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	var zero E
	kind := zero.Kind()

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := b.pubsub.Subscribe(ctx, string(kind))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s to %s: %w", name, kind, err)
	}

	queue := make(chan *message.Message, b.buffer)
	done := make(chan struct{})
	b.subs.Add(1)

	// Receiver: acknowledge immediately so the publisher moves on.
	go func() {
		defer close(queue)
		for msg := range messages {
			msg.Ack()
			select {
			case queue <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Worker: run the handler sequentially in arrival order.
	go func() {
		defer b.subs.Done()
		defer close(done)
		for msg := range queue {
			deliver(ctx, kind, name, msg, handler)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func deliver[E Event](ctx context.Context, kind Kind, name string, msg *message.Message, handler Handler[E]) {
	if ctx.Err() != nil {
		return
	}
	if id := msg.Metadata.Get(correlationMetadataKey); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	} else {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	log := logging.Ctx(ctx).With().Str("event", string(kind)).Str("subscriber", name).Logger()

	e, err := DecodeAs[E](msg.Payload)
	if err != nil {
		metrics.EventsHandled.WithLabelValues(string(kind), name, "decode_error").Inc()
		log.Warn().Err(err).Msg("Dropping malformed event")
		return
	}

	if err := safeHandle(ctx, handler, e); err != nil {
		metrics.EventsHandled.WithLabelValues(string(kind), name, "error").Inc()
		log.Error().Err(err).Msg("Event handler failed")
		return
	}
	metrics.EventsHandled.WithLabelValues(string(kind), name, "ok").Inc()
}

func safeHandle[E Event](ctx context.Context, handler Handler[E], e E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, e)
}

// Close stops every subscription and releases the pub/sub.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.pubsub.Close()
	b.subs.Wait()
	return err
}
