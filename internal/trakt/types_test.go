// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"errors"
	"testing"
	"time"
)

func TestParseItems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{
			name:    "movie",
			payload: `[{"type":"movie","movie":{"title":"Foo","year":2020,"ids":{"trakt":1,"imdb":"tt1"},"released":"2020-05-01","runtime":100}}]`,
			want:    1,
		},
		{
			name:    "episode with show",
			payload: `[{"type":"episode","show":{"title":"Baz","year":2019,"ids":{"trakt":7}},"episode":{"season":1,"number":2,"title":null,"ids":{"trakt":70,"imdb":null}}}]`,
			want:    1,
		},
		{
			name:    "season with show",
			payload: `[{"type":"season","show":{"title":"Baz","year":null,"ids":{"trakt":7}},"season":{"number":2,"ids":{"trakt":72}}}]`,
			want:    1,
		},
		{name: "empty", payload: `[]`, want: 0},
		{name: "unknown type", payload: `[{"type":"person"}]`, wantErr: true},
		{name: "movie without movie", payload: `[{"type":"movie"}]`, wantErr: true},
		{name: "episode without show", payload: `[{"type":"episode","episode":{"season":1,"number":1,"ids":{"trakt":1}}}]`, wantErr: true},
		{name: "show without trakt id", payload: `[{"type":"show","show":{"title":"X","ids":{"slug":"x"}}}]`, wantErr: true},
		{name: "bad release date", payload: `[{"type":"movie","movie":{"title":"Foo","ids":{"trakt":1},"released":"soon"}}]`, wantErr: true},
		{name: "not json", payload: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			items, err := ParseItems([]byte(tt.payload))
			if tt.wantErr {
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("ParseItems() error = %v, want *ParseError", err)
				}
				if items != nil {
					t.Errorf("ParseItems() returned items alongside error: %v", items)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseItems() error = %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("len(items) = %d, want %d", len(items), tt.want)
			}
		})
	}
}

func TestParseItemsFields(t *testing.T) {
	t.Parallel()

	items, err := ParseItems([]byte(`[
		{"type":"movie","rating":9,"rated_at":"2024-01-02T03:04:05.000Z",
		 "movie":{"title":"Foo","year":2020,"ids":{"trakt":1,"imdb":"tt1"},"released":"2020-05-01"}}
	]`))
	if err != nil {
		t.Fatalf("ParseItems() error = %v", err)
	}
	m := items[0].Movie
	if m.IDs.IMDBID() != "tt1" || *m.Year != 2020 {
		t.Errorf("movie = %+v", m)
	}
	if want := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC); !m.Released.Equal(want) {
		t.Errorf("Released = %v, want %v", m.Released, want)
	}
	if items[0].Rating != 9 || items[0].RatedAt == nil {
		t.Errorf("rating fields = %d, %v", items[0].Rating, items[0].RatedAt)
	}
}

func TestParseLastActivities(t *testing.T) {
	t.Parallel()

	a, err := ParseLastActivities([]byte(`{
		"all":"2024-03-01T10:00:00.000Z",
		"movies":{"watched_at":"2024-02-01T10:00:00.000Z","rated_at":null},
		"watchlist":{"updated_at":"2024-03-01T10:00:00.000Z"}
	}`))
	if err != nil {
		t.Fatalf("ParseLastActivities() error = %v", err)
	}
	if a.Watchlist.UpdatedAt == nil || a.Movies.RatedAt != nil || a.Shows.HiddenAt != nil {
		t.Errorf("activities = %+v", a)
	}

	if _, err := ParseLastActivities([]byte(`{"movies":{}}`)); err == nil {
		t.Error("expected error when all is missing")
	}
}

func TestParseSeasonsRejectsMisfiledEpisode(t *testing.T) {
	t.Parallel()

	_, err := ParseSeasons([]byte(`[{"number":1,"ids":{"trakt":1},"episodes":[{"season":2,"number":1,"ids":{"trakt":9}}]}]`))
	if err == nil {
		t.Fatal("expected error")
	}

	seasons, err := ParseSeasons([]byte(`[{"number":0,"ids":{"trakt":1},"episodes":[]},{"number":1,"ids":{"trakt":2},"episodes":[{"season":1,"number":1,"ids":{"trakt":9}}]}]`))
	if err != nil {
		t.Fatalf("ParseSeasons() error = %v", err)
	}
	if len(seasons) != 2 || len(seasons[1].Episodes) != 1 {
		t.Errorf("seasons = %+v", seasons)
	}
}

func TestParseProgress(t *testing.T) {
	t.Parallel()

	p, err := ParseProgress([]byte(`{"aired":10,"completed":4,"last_watched_at":null,"next_episode":{"season":1,"number":5,"ids":{"trakt":5}}}`))
	if err != nil {
		t.Fatalf("ParseProgress() error = %v", err)
	}
	if p.NextEpisode == nil || p.NextEpisode.Number != 5 || p.Aired != 10 {
		t.Errorf("progress = %+v", p)
	}

	p, err = ParseProgress([]byte(`{"aired":3,"completed":3,"next_episode":null}`))
	if err != nil || p.NextEpisode != nil {
		t.Errorf("ParseProgress() = %+v, %v", p, err)
	}

	if _, err := ParseProgress([]byte(`{"aired":-1,"completed":0}`)); err == nil {
		t.Error("expected error for negative counters")
	}
}
