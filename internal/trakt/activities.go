// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"errors"
	"time"
)

// LastActivities holds the per-section timestamps of a user's last actions.
// Every timestamp may be absent.
type LastActivities struct {
	All      *time.Time `json:"all"`
	Movies   struct {
		WatchedAt *time.Time `json:"watched_at"`
		RatedAt   *time.Time `json:"rated_at"`
		HiddenAt  *time.Time `json:"hidden_at"`
	} `json:"movies"`
	Episodes struct {
		WatchedAt *time.Time `json:"watched_at"`
		RatedAt   *time.Time `json:"rated_at"`
	} `json:"episodes"`
	Shows struct {
		RatedAt   *time.Time `json:"rated_at"`
		HiddenAt  *time.Time `json:"hidden_at"`
		DroppedAt *time.Time `json:"dropped_at"`
	} `json:"shows"`
	Seasons struct {
		RatedAt  *time.Time `json:"rated_at"`
		HiddenAt *time.Time `json:"hidden_at"`
	} `json:"seasons"`
	Lists struct {
		LikedAt   *time.Time `json:"liked_at"`
		UpdatedAt *time.Time `json:"updated_at"`
	} `json:"lists"`
	Watchlist struct {
		UpdatedAt *time.Time `json:"updated_at"`
	} `json:"watchlist"`
	Favorites struct {
		UpdatedAt *time.Time `json:"updated_at"`
	} `json:"favorites"`
}

// ParseLastActivities decodes the last activities payload.
func ParseLastActivities(data []byte) (LastActivities, error) {
	return parse("last activities", data, func(a *LastActivities) error {
		if a.All == nil {
			return errors.New("missing all timestamp")
		}
		return nil
	})
}

// Facet names one timestamp of LastActivities.
type Facet string

const (
	FacetMoviesWatched    Facet = "movies.watched_at"
	FacetMoviesRated      Facet = "movies.rated_at"
	FacetMoviesHidden     Facet = "movies.hidden_at"
	FacetEpisodesWatched  Facet = "episodes.watched_at"
	FacetEpisodesRated    Facet = "episodes.rated_at"
	FacetShowsRated       Facet = "shows.rated_at"
	FacetShowsHidden      Facet = "shows.hidden_at"
	FacetShowsDropped     Facet = "shows.dropped_at"
	FacetSeasonsRated     Facet = "seasons.rated_at"
	FacetSeasonsHidden    Facet = "seasons.hidden_at"
	FacetListsLiked       Facet = "lists.liked_at"
	FacetListsUpdated     Facet = "lists.updated_at"
	FacetWatchlistUpdated Facet = "watchlist.updated_at"
	FacetFavoritesUpdated Facet = "favorites.updated_at"
)

// At returns the timestamp of a facet, nil when absent or unknown.
func (a *LastActivities) At(f Facet) *time.Time {
	switch f {
	case FacetMoviesWatched:
		return a.Movies.WatchedAt
	case FacetMoviesRated:
		return a.Movies.RatedAt
	case FacetMoviesHidden:
		return a.Movies.HiddenAt
	case FacetEpisodesWatched:
		return a.Episodes.WatchedAt
	case FacetEpisodesRated:
		return a.Episodes.RatedAt
	case FacetShowsRated:
		return a.Shows.RatedAt
	case FacetShowsHidden:
		return a.Shows.HiddenAt
	case FacetShowsDropped:
		return a.Shows.DroppedAt
	case FacetSeasonsRated:
		return a.Seasons.RatedAt
	case FacetSeasonsHidden:
		return a.Seasons.HiddenAt
	case FacetListsLiked:
		return a.Lists.LikedAt
	case FacetListsUpdated:
		return a.Lists.UpdatedAt
	case FacetWatchlistUpdated:
		return a.Watchlist.UpdatedAt
	case FacetFavoritesUpdated:
		return a.Favorites.UpdatedAt
	}
	return nil
}

// Latest returns the most recent timestamp among facets, nil when none is set.
func (a *LastActivities) Latest(facets ...Facet) *time.Time {
	var latest *time.Time
	for _, f := range facets {
		if at := a.At(f); at != nil && (latest == nil || at.After(*latest)) {
			latest = at
		}
	}
	return latest
}

// ActivityType groups facets by the kind of user action.
type ActivityType string

const (
	ActivityAll         ActivityType = "all"
	ActivityWatched     ActivityType = "watched"
	ActivityRated       ActivityType = "rated"
	ActivityHidden      ActivityType = "hidden"
	ActivityDropped     ActivityType = "dropped"
	ActivityListed      ActivityType = "listed"
	ActivityWatchlisted ActivityType = "watchlisted"
	ActivityFavorited   ActivityType = "favorited"
)

var activityFacets = map[ActivityType][]Facet{
	ActivityWatched:     {FacetMoviesWatched, FacetEpisodesWatched},
	ActivityRated:       {FacetMoviesRated, FacetEpisodesRated, FacetShowsRated, FacetSeasonsRated},
	ActivityHidden:      {FacetMoviesHidden, FacetShowsHidden, FacetSeasonsHidden},
	ActivityDropped:     {FacetShowsDropped},
	ActivityListed:      {FacetListsLiked, FacetListsUpdated},
	ActivityWatchlisted: {FacetWatchlistUpdated},
	ActivityFavorited:   {FacetFavoritesUpdated},
}

// Facets returns the facets of an activity type.
func (t ActivityType) Facets() []Facet {
	return activityFacets[t]
}

// LatestFor returns the latest timestamp of an activity type.
func (a *LastActivities) LatestFor(t ActivityType) *time.Time {
	if t == ActivityAll {
		return a.All
	}
	return a.Latest(t.Facets()...)
}
