// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package jellyfin

import (
	"context"
	"errors"

	"github.com/tomtom215/tracktarr/internal/breaker"
	"github.com/tomtom215/tracktarr/internal/media"
)

// CircuitBreakerClient wraps an API with circuit breaker protection.
// Client-side errors (4xx, name collisions, missing plugin) do not count
// against the circuit.
type CircuitBreakerClient struct {
	api API
	cb  *breaker.Breaker
}

var _ API = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps api.
func NewCircuitBreakerClient(api API) *CircuitBreakerClient {
	return &CircuitBreakerClient{
		api: api,
		cb: breaker.New("jellyfin-api", breaker.Settings{
			IsSuccessful: func(err error) bool {
				if errors.Is(err, ErrUserExists) || errors.Is(err, ErrPluginNotFound) {
					return true
				}
				var apiErr *APIError
				return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
			},
		}),
	}
}

func (c *CircuitBreakerClient) Ping(ctx context.Context) error {
	return breaker.Run(c.cb, func() error { return c.api.Ping(ctx) })
}

func (c *CircuitBreakerClient) ListLibraryItems(ctx context.Context) ([]media.Info, error) {
	return breaker.Do(c.cb, func() ([]media.Info, error) { return c.api.ListLibraryItems(ctx) })
}

func (c *CircuitBreakerClient) RegisterUser(ctx context.Context, name, password string) (string, error) {
	return breaker.Do(c.cb, func() (string, error) { return c.api.RegisterUser(ctx, name, password) })
}

func (c *CircuitBreakerClient) ResetPassword(ctx context.Context, userID, password string) error {
	return breaker.Run(c.cb, func() error { return c.api.ResetPassword(ctx, userID, password) })
}

func (c *CircuitBreakerClient) UsersAuthContext(ctx context.Context) ([]AuthContext, error) {
	return breaker.Do(c.cb, func() ([]AuthContext, error) { return c.api.UsersAuthContext(ctx) })
}
