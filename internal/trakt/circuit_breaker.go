// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/tracktarr/internal/breaker"
)

// CircuitBreakerClient wraps an API with circuit breaker protection. The
// single 429 retry happens inside the protected call. Malformed payloads
// and 4xx responses other than 429 do not count against the circuit.
type CircuitBreakerClient struct {
	api API
	cb  *breaker.Breaker
}

var _ API = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps api.
func NewCircuitBreakerClient(api API) *CircuitBreakerClient {
	return &CircuitBreakerClient{
		api: api,
		cb: breaker.New("trakt-api", breaker.Settings{
			IsSuccessful: func(err error) bool {
				var parseErr *ParseError
				if errors.As(err, &parseErr) {
					return true
				}
				var apiErr *APIError
				return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
					apiErr.StatusCode != http.StatusTooManyRequests
			},
		}),
	}
}

func (c *CircuitBreakerClient) LastActivities(ctx context.Context, user User) (LastActivities, error) {
	return breaker.Do(c.cb, func() (LastActivities, error) { return c.api.LastActivities(ctx, user) })
}

func (c *CircuitBreakerClient) Watchlist(ctx context.Context, user User) ([]Item, error) {
	return breaker.Do(c.cb, func() ([]Item, error) { return c.api.Watchlist(ctx, user) })
}

func (c *CircuitBreakerClient) Lists(ctx context.Context, user User) ([]List, error) {
	return breaker.Do(c.cb, func() ([]List, error) { return c.api.Lists(ctx, user) })
}

func (c *CircuitBreakerClient) ListItems(ctx context.Context, user User, slug string) ([]Item, error) {
	return breaker.Do(c.cb, func() ([]Item, error) { return c.api.ListItems(ctx, user, slug) })
}

func (c *CircuitBreakerClient) Ratings(ctx context.Context, user User, typ MediaType, ratings []int) ([]Item, error) {
	return breaker.Do(c.cb, func() ([]Item, error) { return c.api.Ratings(ctx, user, typ, ratings) })
}

func (c *CircuitBreakerClient) HiddenShows(ctx context.Context, user User) ([]HiddenItem, error) {
	return breaker.Do(c.cb, func() ([]HiddenItem, error) { return c.api.HiddenShows(ctx, user) })
}

func (c *CircuitBreakerClient) WatchedShows(ctx context.Context, user User) ([]WatchedShow, error) {
	return breaker.Do(c.cb, func() ([]WatchedShow, error) { return c.api.WatchedShows(ctx, user) })
}

func (c *CircuitBreakerClient) ShowProgress(ctx context.Context, user User, showID int) (Progress, error) {
	return breaker.Do(c.cb, func() (Progress, error) { return c.api.ShowProgress(ctx, user, showID) })
}

func (c *CircuitBreakerClient) ShowDetails(ctx context.Context, showID int) (Show, error) {
	return breaker.Do(c.cb, func() (Show, error) { return c.api.ShowDetails(ctx, showID) })
}

func (c *CircuitBreakerClient) Seasons(ctx context.Context, showID int) ([]Season, error) {
	return breaker.Do(c.cb, func() ([]Season, error) { return c.api.Seasons(ctx, showID) })
}
