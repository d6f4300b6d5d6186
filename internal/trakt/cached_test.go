// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/tracktarr/internal/cache"
	"github.com/tomtom215/tracktarr/internal/config"
)

func newCachedClient(t *testing.T, api API) (*CachedClient, *cache.Memory) {
	t.Helper()
	mem := cache.NewMemory(time.Hour)
	t.Cleanup(func() { _ = mem.Close() })
	return NewCachedClient(api, mem, &config.CacheConfig{
		ActivitiesTTL: time.Minute,
		UserDataTTL:   time.Hour,
		ShowTTL:       24 * time.Hour,
	}), mem
}

func TestCachedClientReusesUntilActivityChanges(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{watchlist: []Item{{Type: TypeMovie, Movie: &Movie{Title: "Foo", IDs: IDs{Trakt: 1}}}}}
	api.activities.All = ts(1)
	api.activities.Watchlist.UpdatedAt = ts(1)
	c, mem := newCachedClient(t, api)
	ctx := context.Background()

	for range 3 {
		items, err := c.Watchlist(ctx, testUser)
		if err != nil || len(items) != 1 || items[0].Movie.Title != "Foo" {
			t.Fatalf("Watchlist() = %v, %v", items, err)
		}
	}
	if api.callCount("Watchlist") != 1 {
		t.Errorf("Watchlist calls = %d, want 1", api.callCount("Watchlist"))
	}
	if api.callCount("LastActivities") != 1 {
		t.Errorf("LastActivities calls = %d, want 1", api.callCount("LastActivities"))
	}

	// A new watchlist action produces a new key once activities expire.
	api.activities.Watchlist.UpdatedAt = ts(2)
	mem.Delete("last-activities-" + testUser.ID)
	if _, err := c.Watchlist(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if api.callCount("Watchlist") != 2 {
		t.Errorf("Watchlist calls = %d, want 2 after activity change", api.callCount("Watchlist"))
	}

	// An unrelated action keeps the watchlist entry.
	api.activities.Movies.RatedAt = ts(3)
	mem.Delete("last-activities-" + testUser.ID)
	if _, err := c.Watchlist(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if api.callCount("Watchlist") != 2 {
		t.Errorf("Watchlist calls = %d, want 2 after unrelated activity", api.callCount("Watchlist"))
	}
}

func TestCachedClientDistinguishesShows(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{progress: map[int]Progress{
		1: {Aired: 5, Completed: 1},
		2: {Aired: 9, Completed: 9},
	}}
	api.activities.All = ts(1)
	c, _ := newCachedClient(t, api)
	ctx := context.Background()

	p1, err := c.ShowProgress(ctx, testUser, 1)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.ShowProgress(ctx, testUser, 2)
	if err != nil {
		t.Fatal(err)
	}
	if p1.Aired != 5 || p2.Aired != 9 {
		t.Errorf("progress = %+v / %+v, calls for distinct shows must not share an entry", p1, p2)
	}

	other := User{ID: "u2", AccessToken: "t2"}
	if _, err := c.ShowProgress(ctx, other, 1); err != nil {
		t.Fatal(err)
	}
	if api.callCount("ShowProgress") != 3 {
		t.Errorf("ShowProgress calls = %d, want 3", api.callCount("ShowProgress"))
	}
}

func TestCachedClientShowData(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		shows:   map[int]Show{7: {Title: "Baz", IDs: IDs{Trakt: 7}, AiredEpisodes: intPtr(3)}},
		seasons: map[int][]Season{7: {{Number: 1, Episodes: []Episode{{Season: 1, Number: 1}}}}},
	}
	c, mem := newCachedClient(t, api)
	ctx := context.Background()

	for range 2 {
		if _, err := c.ShowDetails(ctx, 7); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Seasons(ctx, 7); err != nil {
			t.Fatal(err)
		}
	}
	if api.callCount("ShowDetails") != 1 || api.callCount("Seasons") != 1 {
		t.Errorf("calls = %v", api.calls)
	}
	if _, ok := mem.Get("show-details-7"); !ok {
		t.Error("show details not cached under show-details-7")
	}
	if _, ok := mem.Get("show-seasons-details-7"); !ok {
		t.Error("seasons not cached under show-seasons-details-7")
	}
}

func TestCachedClientDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	api := &fakeAPI{err: errBoom}
	c, _ := newCachedClient(t, api)

	for range 2 {
		if _, err := c.ShowDetails(context.Background(), 1); !errors.Is(err, errBoom) {
			t.Fatalf("ShowDetails() error = %v", err)
		}
	}
	if api.callCount("ShowDetails") != 2 {
		t.Errorf("ShowDetails calls = %d, want 2", api.callCount("ShowDetails"))
	}

	if _, err := c.Watchlist(context.Background(), testUser); !errors.Is(err, errBoom) {
		t.Errorf("Watchlist() error = %v, want activities error", err)
	}
	if api.callCount("Watchlist") != 0 {
		t.Error("Watchlist fetched although the activities lookup failed")
	}
}
