// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/tracktarr/internal/ledger"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
	"github.com/tomtom215/tracktarr/internal/trakt"
)

var errTracker = errors.New("tracker unavailable")

// fakeTracker serves a fixed catalogue. failOn makes the named method fail.
type fakeTracker struct {
	mu     sync.Mutex
	calls  map[string]int
	failOn map[string]bool

	activities trakt.LastActivities
	watchlist  []trakt.Item
	lists      []trakt.List
	listItems  map[string][]trakt.Item
	ratings    map[trakt.MediaType][]trakt.Item
	watched    []trakt.WatchedShow
	progress   map[int]trakt.Progress
	shows      map[int]trakt.Show
	seasons    map[int][]trakt.Season
}

var _ trakt.API = (*fakeTracker)(nil)

func (f *fakeTracker) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
	if f.failOn[name] {
		return errTracker
	}
	return nil
}

func (f *fakeTracker) LastActivities(context.Context, trakt.User) (trakt.LastActivities, error) {
	return f.activities, f.hit("LastActivities")
}

func (f *fakeTracker) Watchlist(context.Context, trakt.User) ([]trakt.Item, error) {
	return f.watchlist, f.hit("Watchlist")
}

func (f *fakeTracker) Lists(context.Context, trakt.User) ([]trakt.List, error) {
	return f.lists, f.hit("Lists")
}

func (f *fakeTracker) ListItems(_ context.Context, _ trakt.User, slug string) ([]trakt.Item, error) {
	return f.listItems[slug], f.hit("ListItems")
}

func (f *fakeTracker) Ratings(_ context.Context, _ trakt.User, typ trakt.MediaType, _ []int) ([]trakt.Item, error) {
	return f.ratings[typ], f.hit("Ratings")
}

func (f *fakeTracker) HiddenShows(context.Context, trakt.User) ([]trakt.HiddenItem, error) {
	return nil, f.hit("HiddenShows")
}

func (f *fakeTracker) WatchedShows(context.Context, trakt.User) ([]trakt.WatchedShow, error) {
	return f.watched, f.hit("WatchedShows")
}

func (f *fakeTracker) ShowProgress(_ context.Context, _ trakt.User, id int) (trakt.Progress, error) {
	return f.progress[id], f.hit("ShowProgress")
}

func (f *fakeTracker) ShowDetails(_ context.Context, id int) (trakt.Show, error) {
	return f.shows[id], f.hit("ShowDetails")
}

func (f *fakeTracker) Seasons(_ context.Context, id int) ([]trakt.Season, error) {
	return f.seasons[id], f.hit("Seasons")
}

// memCursors keeps cursors monotonic like the database store.
type memCursors struct {
	mu      sync.Mutex
	cursors map[string]map[models.Kind]time.Time
	fail    bool
}

func newMemCursors() *memCursors {
	return &memCursors{cursors: make(map[string]map[models.Kind]time.Time)}
}

func (c *memCursors) Cursors(_ context.Context, userID string) (map[models.Kind]time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[models.Kind]time.Time)
	for k, v := range c.cursors[userID] {
		out[k] = v
	}
	return out, nil
}

func (c *memCursors) Advance(_ context.Context, userID string, kind models.Kind, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("cursor store down")
	}
	if c.cursors[userID] == nil {
		c.cursors[userID] = make(map[models.Kind]time.Time)
	}
	if cur, ok := c.cursors[userID][kind]; !ok || at.After(cur) {
		c.cursors[userID][kind] = at
	}
	return nil
}

func (c *memCursors) get(userID string, kind models.Kind) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.cursors[userID][kind]
	return at, ok
}

type ledgerCall struct {
	userID  string
	kind    models.Kind
	desired []media.Info
}

type fakeLedger struct {
	mu     sync.Mutex
	calls  []ledgerCall
	failOn map[models.Kind]bool
}

func (l *fakeLedger) SyncTargeted(_ context.Context, userID string, kind models.Kind, desired []media.Info) (ledger.SyncResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failOn[kind] {
		return ledger.SyncResult{}, errors.New("tx rolled back")
	}
	l.calls = append(l.calls, ledgerCall{userID: userID, kind: kind, desired: desired})
	return ledger.SyncResult{Created: len(desired)}, nil
}

func (l *fakeLedger) desiredFor(kind models.Kind) ([]media.Info, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.kind == kind {
			return c.desired, true
		}
	}
	return nil, false
}

func intPtr(n int) *int {
	return &n
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

// season builds a season with episodes 1..n.
func season(number, n int) trakt.Season {
	s := trakt.Season{Number: number, IDs: trakt.IDs{Trakt: 100 + number}}
	for i := 1; i <= n; i++ {
		imdb := fmt.Sprintf("tt-s%de%d", number, i)
		s.Episodes = append(s.Episodes, trakt.Episode{Season: number, Number: i, IDs: trakt.IDs{Trakt: number*100 + i, IMDB: &imdb}})
	}
	return s
}
