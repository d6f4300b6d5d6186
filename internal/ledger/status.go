// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package ledger

import (
	"errors"

	"github.com/tomtom215/tracktarr/internal/models"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRequestNotFound is returned when a request id matches no row.
	ErrRequestNotFound = errors.New("request not found")
)

var transitions = map[models.Status][]models.Status{
	models.StatusPending: {
		models.StatusFulfilled,
		models.StatusMissing,
		models.StatusRejected,
		models.StatusCanceled,
	},
	models.StatusMissing: {
		models.StatusPending,
		models.StatusFulfilled,
		models.StatusRejected,
	},
	models.StatusRejected: {models.StatusPending},
	models.StatusCanceled: {models.StatusPending},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// reopens reports whether re-adding attribution should move a request back
// to pending. Missing requests only reopen when a new user joins.
func reopens(status models.Status, newUser bool) bool {
	switch status {
	case models.StatusRejected, models.StatusCanceled:
		return true
	case models.StatusMissing:
		return newUser
	default:
		return false
	}
}
