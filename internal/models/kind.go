// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package models

import (
	"fmt"
	"slices"
	"time"
)

// Kind is the category of watch-tracker source that produced a want.
type Kind string

const (
	KindWatchlisted Kind = "WATCHLISTED"
	KindListed      Kind = "LISTED"
	KindProgress    Kind = "PROGRESS"
	KindHighRated   Kind = "HIGH_RATED"
)

// Kinds returns every request kind in sync order.
func Kinds() []Kind {
	return []Kind{KindWatchlisted, KindListed, KindProgress, KindHighRated}
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("unknown request kind %q", s)
	}
	return k, nil
}

// Cursor records the last successful sync of a (user, kind) pair.
type Cursor struct {
	UserID    string
	Kind      Kind
	UpdatedAt time.Time
}
