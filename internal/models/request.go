// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package models

import (
	"slices"
	"time"

	"github.com/tomtom215/tracktarr/internal/media"
)

// Media is a persisted media.Info.
type Media struct {
	ID string
	media.Info
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Request tracks one Media. There is at most one Request per Media, so the
// media id doubles as the request id.
type Request struct {
	MediaID   string
	Status    Status
	ThreadID  string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Populated by loaders that join them; nil otherwise.
	Media *Media
	Users []RequestUser
}

// ID returns the request id.
func (r *Request) ID() string {
	return r.MediaID
}

// UserIDs lists the attributed user ids.
func (r *Request) UserIDs() []string {
	ids := make([]string, 0, len(r.Users))
	for _, ru := range r.Users {
		ids = append(ids, ru.UserID)
	}
	return ids
}

// RequestUser attributes a Request to a User. Reasons is never empty for a
// persisted row.
type RequestUser struct {
	RequestID string
	UserID    string
	Reasons   []Kind
	CreatedAt time.Time
	UpdatedAt time.Time

	User *User
}

// HasReason reports whether kind is among the reasons.
func (ru RequestUser) HasReason(kind Kind) bool {
	return slices.Contains(ru.Reasons, kind)
}

// WithReason returns the reasons with kind added once.
func WithReason(reasons []Kind, kind Kind) []Kind {
	if slices.Contains(reasons, kind) {
		return reasons
	}
	out := make([]Kind, 0, len(reasons)+1)
	out = append(out, reasons...)
	return append(out, kind)
}

// WithoutReason returns the reasons with kind removed.
func WithoutReason(reasons []Kind, kind Kind) []Kind {
	out := make([]Kind, 0, len(reasons))
	for _, r := range reasons {
		if r != kind {
			out = append(out, r)
		}
	}
	return out
}
