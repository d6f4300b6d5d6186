// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package models

import "fmt"

// Status is the lifecycle state of a Request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusMissing   Status = "missing"
	StatusRejected  Status = "rejected"
	StatusCanceled  Status = "canceled"
)

// Statuses returns every status.
func Statuses() []Status {
	return []Status{StatusPending, StatusFulfilled, StatusMissing, StatusRejected, StatusCanceled}
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusFulfilled, StatusMissing, StatusRejected, StatusCanceled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown request status %q", s)
	}
}

// Tracked reports whether the availability pass looks at requests in this
// status.
func (s Status) Tracked() bool {
	return s == StatusPending || s == StatusMissing
}
