// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/tracktarr/internal/events"
)

// SubscribeFunc registers handlers on the bus and returns their disposers.
type SubscribeFunc func(bus *events.Bus) ([]events.Disposer, error)

// SubscriptionService keeps a component's bus subscriptions alive while
// it runs. A restart subscribes again.
type SubscriptionService struct {
	bus       *events.Bus
	subscribe SubscribeFunc
	name      string
}

// NewSubscriptionService supervises the subscriptions made by subscribe.
func NewSubscriptionService(name string, bus *events.Bus, subscribe SubscribeFunc) *SubscriptionService {
	return &SubscriptionService{bus: bus, subscribe: subscribe, name: name}
}

// Serve subscribes, then disposes every subscription once ctx is canceled.
func (s *SubscriptionService) Serve(ctx context.Context) error {
	disposers, err := s.subscribe(s.bus)
	if err != nil {
		dispose(disposers)
		return fmt.Errorf("%s subscribe failed: %w", s.name, err)
	}

	<-ctx.Done()
	dispose(disposers)
	return ctx.Err()
}

func (s *SubscriptionService) String() string {
	return s.name
}

func dispose(disposers []events.Disposer) {
	for _, d := range disposers {
		if d != nil {
			d()
		}
	}
}
