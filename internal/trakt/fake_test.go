// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"context"
	"sync"
)

// fakeAPI serves canned responses and counts calls per method.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	activities LastActivities
	watchlist  []Item
	lists      []List
	listItems  map[string][]Item
	ratings    map[MediaType][]Item
	hidden     []HiddenItem
	watched    []WatchedShow
	progress   map[int]Progress
	shows      map[int]Show
	seasons    map[int][]Season
	err        error
}

var _ API = (*fakeAPI)(nil)

func (f *fakeAPI) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) LastActivities(context.Context, User) (LastActivities, error) {
	f.count("LastActivities")
	return f.activities, f.err
}

func (f *fakeAPI) Watchlist(context.Context, User) ([]Item, error) {
	f.count("Watchlist")
	return f.watchlist, f.err
}

func (f *fakeAPI) Lists(context.Context, User) ([]List, error) {
	f.count("Lists")
	return f.lists, f.err
}

func (f *fakeAPI) ListItems(_ context.Context, _ User, slug string) ([]Item, error) {
	f.count("ListItems")
	return f.listItems[slug], f.err
}

func (f *fakeAPI) Ratings(_ context.Context, _ User, typ MediaType, ratings []int) ([]Item, error) {
	f.count("Ratings")
	var out []Item
	for _, item := range f.ratings[typ] {
		for _, r := range ratings {
			if item.Rating == r {
				out = append(out, item)
			}
		}
	}
	return out, f.err
}

func (f *fakeAPI) HiddenShows(context.Context, User) ([]HiddenItem, error) {
	f.count("HiddenShows")
	return f.hidden, f.err
}

func (f *fakeAPI) WatchedShows(context.Context, User) ([]WatchedShow, error) {
	f.count("WatchedShows")
	return f.watched, f.err
}

func (f *fakeAPI) ShowProgress(_ context.Context, _ User, showID int) (Progress, error) {
	f.count("ShowProgress")
	return f.progress[showID], f.err
}

func (f *fakeAPI) ShowDetails(_ context.Context, showID int) (Show, error) {
	f.count("ShowDetails")
	return f.shows[showID], f.err
}

func (f *fakeAPI) Seasons(_ context.Context, showID int) ([]Season, error) {
	f.count("Seasons")
	return f.seasons[showID], f.err
}

func intPtr(n int) *int {
	return &n
}

func showWithID(id int) *Show {
	return &Show{Title: "Show", IDs: IDs{Trakt: id}}
}
