// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package models

import (
	"slices"
	"testing"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("FAVORITED"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range Statuses() {
		if _, err := ParseStatus(string(s)); err != nil {
			t.Errorf("ParseStatus(%q) error: %v", s, err)
		}
	}
	if _, err := ParseStatus("in_progress"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatusTracked(t *testing.T) {
	t.Parallel()

	tests := map[Status]bool{
		StatusPending:   true,
		StatusMissing:   true,
		StatusFulfilled: false,
		StatusRejected:  false,
		StatusCanceled:  false,
	}
	for status, want := range tests {
		if got := status.Tracked(); got != want {
			t.Errorf("%s.Tracked() = %v, want %v", status, got, want)
		}
	}
}

func TestReasons(t *testing.T) {
	t.Parallel()

	reasons := WithReason(nil, KindWatchlisted)
	reasons = WithReason(reasons, KindWatchlisted)
	reasons = WithReason(reasons, KindHighRated)
	if !slices.Equal(reasons, []Kind{KindWatchlisted, KindHighRated}) {
		t.Fatalf("WithReason() = %v", reasons)
	}

	remaining := WithoutReason(reasons, KindWatchlisted)
	if !slices.Equal(remaining, []Kind{KindHighRated}) {
		t.Errorf("WithoutReason() = %v", remaining)
	}
	if len(reasons) != 2 {
		t.Error("expected WithoutReason to leave its input untouched")
	}

	ru := RequestUser{Reasons: remaining}
	if ru.HasReason(KindWatchlisted) || !ru.HasReason(KindHighRated) {
		t.Errorf("HasReason mismatch for %v", ru.Reasons)
	}
}
