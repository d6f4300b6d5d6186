// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"
)

// ReleasedWatchlist returns the watchlist items already released at now,
// capped at limit when limit > 0. Movies use their release date; shows,
// seasons and episodes use the show's first air date.
func ReleasedWatchlist(ctx context.Context, api API, user User, now time.Time, limit int) ([]Item, error) {
	items, err := api.Watchlist(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}

	released := make([]Item, 0, len(items))
	for _, item := range items {
		if isReleased(item, now) {
			released = append(released, item)
		}
	}
	return capItems(released, limit), nil
}

func isReleased(item Item, now time.Time) bool {
	if item.Type == TypeMovie {
		return item.Movie.Released != nil && !item.Movie.Released.After(now)
	}
	return item.Show.FirstAired != nil && !item.Show.FirstAired.After(now)
}

// NamedList returns the items of the personal list called name. A missing
// list yields no items.
func NamedList(ctx context.Context, api API, user User, name string) ([]Item, error) {
	lists, err := api.Lists(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("lists: %w", err)
	}
	idx := slices.IndexFunc(lists, func(l List) bool { return l.Name == name })
	if idx < 0 {
		return nil, nil
	}
	slug := lists[idx].IDs.Slug
	if slug == "" {
		slug = fmt.Sprint(lists[idx].IDs.Trakt)
	}
	items, err := api.ListItems(ctx, user, slug)
	if err != nil {
		return nil, fmt.Errorf("list %q items: %w", name, err)
	}
	return items, nil
}

// HighRated returns every item rated threshold..10 across all item types,
// best rated first then most recently rated, capped at limit when limit > 0.
func HighRated(ctx context.Context, api API, user User, threshold, limit int) ([]Item, error) {
	if threshold < 1 || threshold > 10 {
		return nil, fmt.Errorf("invalid rating threshold %d, must be between 1 and 10", threshold)
	}
	ratings := make([]int, 0, 11-threshold)
	for r := threshold; r <= 10; r++ {
		ratings = append(ratings, r)
	}

	var all []Item
	for _, typ := range MediaTypes() {
		items, err := api.Ratings(ctx, user, typ, ratings)
		if err != nil {
			return nil, fmt.Errorf("%s ratings: %w", typ, err)
		}
		all = append(all, items...)
	}

	slices.SortStableFunc(all, func(a, b Item) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		return compareTimes(b.RatedAt, a.RatedAt)
	})
	return capItems(all, limit), nil
}

// InProgressShows returns the watched, non-hidden shows that have an aired
// episode left to watch, most recently watched first, capped at limit when
// limit > 0.
func InProgressShows(ctx context.Context, api API, user User, limit int) ([]ProgressShow, error) {
	hidden, err := api.HiddenShows(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("hidden shows: %w", err)
	}
	hiddenIDs := make(map[int]struct{}, len(hidden))
	for _, h := range hidden {
		if h.Show != nil {
			hiddenIDs[h.Show.IDs.Trakt] = struct{}{}
		}
	}

	watched, err := api.WatchedShows(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("watched shows: %w", err)
	}

	var shows []ProgressShow
	for _, w := range watched {
		if _, ok := hiddenIDs[w.Show.IDs.Trakt]; ok {
			continue
		}
		progress, err := api.ShowProgress(ctx, user, w.Show.IDs.Trakt)
		if err != nil {
			return nil, fmt.Errorf("progress of show %d: %w", w.Show.IDs.Trakt, err)
		}
		if progress.NextEpisode == nil || progress.Aired <= progress.Completed {
			continue
		}
		shows = append(shows, ProgressShow{Show: w.Show, Progress: progress, LastWatchedAt: w.LastWatchedAt})
	}

	slices.SortStableFunc(shows, func(a, b ProgressShow) int {
		return b.LastWatchedAt.Compare(a.LastWatchedAt)
	})
	if limit > 0 && len(shows) > limit {
		shows = shows[:limit]
	}
	return shows, nil
}

func capItems(items []Item, limit int) []Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// compareTimes orders nil before any instant.
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
