// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/tracktarr/internal/cache"
	"github.com/tomtom215/tracktarr/internal/config"
)

const cacheName = "trakt"

// CachedClient caches API responses. User-scoped responses are keyed by
// the latest timestamp of the activity type that can change them, so a new
// user action produces a new key and the stale entry simply expires.
type CachedClient struct {
	api   API
	cache cache.Cacher

	activitiesTTL time.Duration
	userDataTTL   time.Duration
	showTTL       time.Duration
}

var _ API = (*CachedClient)(nil)

// NewCachedClient wraps api with the given cache.
func NewCachedClient(api API, c cache.Cacher, cfg *config.CacheConfig) *CachedClient {
	return &CachedClient{
		api:           api,
		cache:         c,
		activitiesTTL: cfg.ActivitiesTTL,
		userDataTTL:   cfg.UserDataTTL,
		showTTL:       cfg.ShowTTL,
	}
}

// LastActivities is cached briefly under a per-user key.
func (c *CachedClient) LastActivities(ctx context.Context, user User) (LastActivities, error) {
	return cache.Remember(ctx, c.cache, cacheName, "last-activities-"+user.ID, c.activitiesTTL,
		func(ctx context.Context) (LastActivities, error) {
			return c.api.LastActivities(ctx, user)
		})
}

// activityKey builds "{activity}-{userId}-{timestamp}[-{discriminator}]".
func (c *CachedClient) activityKey(ctx context.Context, user User, activity ActivityType, discriminator ...string) (string, error) {
	activities, err := c.LastActivities(ctx, user)
	if err != nil {
		return "", err
	}
	stamp := "none"
	if at := activities.LatestFor(activity); at != nil {
		stamp = at.UTC().Format(time.RFC3339Nano)
	}
	parts := append([]string{string(activity), user.ID, stamp}, discriminator...)
	return strings.Join(parts, "-"), nil
}

func rememberActivity[T any](ctx context.Context, c *CachedClient, user User, activity ActivityType, fetch func(context.Context) (T, error), discriminator ...string) (T, error) {
	key, err := c.activityKey(ctx, user, activity, discriminator...)
	if err != nil {
		var zero T
		return zero, err
	}
	return cache.Remember(ctx, c.cache, cacheName, key, c.userDataTTL, fetch)
}

func (c *CachedClient) Watchlist(ctx context.Context, user User) ([]Item, error) {
	return rememberActivity(ctx, c, user, ActivityWatchlisted, func(ctx context.Context) ([]Item, error) {
		return c.api.Watchlist(ctx, user)
	})
}

func (c *CachedClient) Lists(ctx context.Context, user User) ([]List, error) {
	return rememberActivity(ctx, c, user, ActivityListed, func(ctx context.Context) ([]List, error) {
		return c.api.Lists(ctx, user)
	}, "lists")
}

func (c *CachedClient) ListItems(ctx context.Context, user User, slug string) ([]Item, error) {
	return rememberActivity(ctx, c, user, ActivityListed, func(ctx context.Context) ([]Item, error) {
		return c.api.ListItems(ctx, user, slug)
	}, "items", slug)
}

func (c *CachedClient) Ratings(ctx context.Context, user User, typ MediaType, ratings []int) ([]Item, error) {
	values := make([]string, 0, len(ratings))
	for _, r := range ratings {
		values = append(values, strconv.Itoa(r))
	}
	return rememberActivity(ctx, c, user, ActivityRated, func(ctx context.Context) ([]Item, error) {
		return c.api.Ratings(ctx, user, typ, ratings)
	}, string(typ), strings.Join(values, ","))
}

func (c *CachedClient) HiddenShows(ctx context.Context, user User) ([]HiddenItem, error) {
	return rememberActivity(ctx, c, user, ActivityHidden, func(ctx context.Context) ([]HiddenItem, error) {
		return c.api.HiddenShows(ctx, user)
	})
}

func (c *CachedClient) WatchedShows(ctx context.Context, user User) ([]WatchedShow, error) {
	return rememberActivity(ctx, c, user, ActivityWatched, func(ctx context.Context) ([]WatchedShow, error) {
		return c.api.WatchedShows(ctx, user)
	}, "shows")
}

func (c *CachedClient) ShowProgress(ctx context.Context, user User, showID int) (Progress, error) {
	return rememberActivity(ctx, c, user, ActivityWatched, func(ctx context.Context) (Progress, error) {
		return c.api.ShowProgress(ctx, user, showID)
	}, "progress", strconv.Itoa(showID))
}

func (c *CachedClient) ShowDetails(ctx context.Context, showID int) (Show, error) {
	return cache.Remember(ctx, c.cache, cacheName, fmt.Sprintf("show-details-%d", showID), c.showTTL,
		func(ctx context.Context) (Show, error) {
			return c.api.ShowDetails(ctx, showID)
		})
}

func (c *CachedClient) Seasons(ctx context.Context, showID int) ([]Season, error) {
	return cache.Remember(ctx, c.cache, cacheName, fmt.Sprintf("show-seasons-details-%d", showID), c.showTTL,
		func(ctx context.Context) ([]Season, error) {
			return c.api.Seasons(ctx, showID)
		})
}
