// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package jellyfin

import (
	"errors"
	"fmt"
)

var (
	// ErrUserExists is returned by RegisterUser when the name is taken.
	ErrUserExists = errors.New("jellyfin: user already exists")

	// ErrPluginNotFound is returned when the Trakt plugin is not installed.
	ErrPluginNotFound = errors.New("jellyfin: trakt plugin not found")
)

// APIError is an unexpected response status.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jellyfin %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
