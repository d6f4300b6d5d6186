// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package discord

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when a request is still rate limited after
// its retry.
var ErrRateLimited = errors.New("discord rate limit exceeded")

// APIError is a non-2xx REST response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
