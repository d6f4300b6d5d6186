// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package media

import (
	"errors"
	"testing"
)

func TestIdentify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info Info
		want Key
	}{
		{"movie", Movie("tt0000001", "Foo", 2020), Key{"tt0000001", -1, -1}},
		{"episode", Episode("tt0000002", "Bar", 2019, 1, 3), Key{"tt0000002", 1, 3}},
		{"special", Episode("tt0000003", "Bar", 2019, 0, 1), Key{"tt0000003", 0, 1}},
		{"episode without id", Episode("", "Baz", 2021, 2, 4), Key{"", 2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Identify(tt.info); got != tt.want {
				t.Errorf("Identify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSameIgnoresCosmeticFields(t *testing.T) {
	t.Parallel()

	a := Movie("tt0000001", "Foo", 2020)
	b := Movie("tt0000001", "Foo (Director's cut)", 2021)
	if !Same(a, b) {
		t.Error("expected movies with same id to be the same media")
	}

	ep1 := Episode("tt0000002", "Bar", 2019, 1, 1)
	ep2 := Episode("tt0000002", "Bar", 2019, 1, 2)
	if Same(ep1, ep2) {
		t.Error("expected different episode numbers to be different media")
	}
}

func TestSameTypeMatters(t *testing.T) {
	t.Parallel()

	movie := Movie("tt0000001", "Foo", 2020)
	episode := Info{ExternalID: "tt0000001", Type: TypeEpisode, Title: "Foo"}
	if Same(movie, episode) {
		t.Error("expected type mismatch to break identity")
	}
}

// Episodes lacking an external id collide when their numbers match, even
// across different shows.
func TestMissingExternalIDCollides(t *testing.T) {
	t.Parallel()

	a := Episode("", "Show A", 2020, 1, 1)
	b := Episode("", "Show B", 2015, 1, 1)
	if !Same(a, b) {
		t.Error("expected episodes without external id to collide")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	season := 1
	tests := []struct {
		name string
		info Info
		want error
	}{
		{"movie", Movie("tt1", "Foo", 2020), nil},
		{"episode", Episode("tt2", "Bar", 2020, 1, 1), nil},
		{"movie with season", Info{ExternalID: "tt1", Type: TypeMovie, Season: &season}, ErrMovieHasNumbers},
		{"episode without numbers", Info{ExternalID: "tt2", Type: TypeEpisode}, ErrEpisodeNumbers},
		{"show", Info{ExternalID: "tt3", Type: "show"}, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.info.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	if got := Episode("tt2", "Bar", 2019, 1, 3).Label(); got != "Bar (2019) S01E03" {
		t.Errorf("Label() = %q", got)
	}
	if got := Movie("tt1", "Foo", 0).Label(); got != "Foo" {
		t.Errorf("Label() = %q", got)
	}
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	if got := Identify(Movie("tt1", "Foo", 2020)).String(); got != "tt1:-1:-1" {
		t.Errorf("String() = %q", got)
	}
}
