// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package trakt

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// MediaType is the type discriminator of a tracker item.
type MediaType string

const (
	TypeMovie   MediaType = "movie"
	TypeShow    MediaType = "show"
	TypeSeason  MediaType = "season"
	TypeEpisode MediaType = "episode"
)

// MediaTypes lists every item type, in the order ratings are fetched.
func MediaTypes() []MediaType {
	return []MediaType{TypeMovie, TypeShow, TypeSeason, TypeEpisode}
}

// Date is a calendar date ("2010-07-16").
type Date struct {
	time.Time
}

// UnmarshalJSON parses a date-only string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON renders the date-only form so cached payloads round trip.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

// IDs are the cross-service identifiers of an item.
type IDs struct {
	Trakt int     `json:"trakt"`
	Slug  string  `json:"slug,omitempty"`
	IMDB  *string `json:"imdb"`
	TMDB  *int    `json:"tmdb"`
	TVDB  *int    `json:"tvdb"`
}

// IMDBID returns the IMDb id or the empty string.
func (ids IDs) IMDBID() string {
	if ids.IMDB == nil {
		return ""
	}
	return *ids.IMDB
}

type Movie struct {
	Title    string `json:"title"`
	Year     *int   `json:"year"`
	IDs      IDs    `json:"ids"`
	Released *Date  `json:"released,omitempty"`
	Runtime  *int   `json:"runtime,omitempty"`
}

type Show struct {
	Title         string     `json:"title"`
	Year          *int       `json:"year"`
	IDs           IDs        `json:"ids"`
	FirstAired    *time.Time `json:"first_aired,omitempty"`
	Runtime       *int       `json:"runtime,omitempty"`
	AiredEpisodes *int       `json:"aired_episodes,omitempty"`
}

type Season struct {
	Number   int       `json:"number"`
	IDs      IDs       `json:"ids"`
	Episodes []Episode `json:"episodes,omitempty"`
}

type Episode struct {
	Season int     `json:"season"`
	Number int     `json:"number"`
	Title  *string `json:"title"`
	IDs    IDs     `json:"ids"`
}

// Item is one entry of a watchlist, a list or a ratings page.
type Item struct {
	Type    MediaType `json:"type"`
	Movie   *Movie    `json:"movie,omitempty"`
	Show    *Show     `json:"show,omitempty"`
	Season  *Season   `json:"season,omitempty"`
	Episode *Episode  `json:"episode,omitempty"`

	// Ratings only.
	Rating  int        `json:"rating,omitempty"`
	RatedAt *time.Time `json:"rated_at,omitempty"`

	// Watchlist and lists only.
	ListedAt *time.Time `json:"listed_at,omitempty"`
}

// List is a user list summary.
type List struct {
	Name string `json:"name"`
	IDs  IDs    `json:"ids"`
}

// HiddenItem is an entry of the hidden progress section.
type HiddenItem struct {
	HiddenAt time.Time `json:"hidden_at"`
	Type     MediaType `json:"type"`
	Show     *Show     `json:"show,omitempty"`
}

// WatchedShow is an entry of the watched shows history.
type WatchedShow struct {
	Plays         int       `json:"plays"`
	LastWatchedAt time.Time `json:"last_watched_at"`
	Show          Show      `json:"show"`
}

// Progress is the watched progress of a show.
type Progress struct {
	Aired         int        `json:"aired"`
	Completed     int        `json:"completed"`
	LastWatchedAt *time.Time `json:"last_watched_at"`
	NextEpisode   *Episode   `json:"next_episode"`
}

// ProgressShow joins a show with its progress.
type ProgressShow struct {
	Show          Show
	Progress      Progress
	LastWatchedAt time.Time
}

var (
	errMissingIDs = errors.New("missing trakt id")
	errMissingObj = errors.New("item type has no matching object")
)

func parse[T any](what string, data []byte, check func(*T) error) (T, error) {
	var v, zero T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, &ParseError{What: what, Err: err}
	}
	if check != nil {
		if err := check(&v); err != nil {
			return zero, &ParseError{What: what, Err: err}
		}
	}
	return v, nil
}

func checkShow(s *Show) error {
	if s == nil {
		return fmt.Errorf("show: %w", errMissingObj)
	}
	if s.IDs.Trakt == 0 {
		return fmt.Errorf("show %q: %w", s.Title, errMissingIDs)
	}
	return nil
}

func checkItem(i int, item *Item) error {
	var err error
	switch item.Type {
	case TypeMovie:
		if item.Movie == nil {
			err = errMissingObj
		}
	case TypeShow:
		err = checkShow(item.Show)
	case TypeSeason:
		if err = checkShow(item.Show); err == nil && item.Season == nil {
			err = errMissingObj
		}
	case TypeEpisode:
		if err = checkShow(item.Show); err == nil && item.Episode == nil {
			err = errMissingObj
		}
	default:
		err = fmt.Errorf("unknown type %q", item.Type)
	}
	if err != nil {
		return fmt.Errorf("item %d (%s): %w", i, item.Type, err)
	}
	return nil
}

// ParseItems decodes a watchlist, list or ratings payload.
func ParseItems(data []byte) ([]Item, error) {
	return parse("items", data, func(items *[]Item) error {
		for i := range *items {
			if err := checkItem(i, &(*items)[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ParseLists decodes the user lists payload.
func ParseLists(data []byte) ([]List, error) {
	return parse[[]List]("lists", data, nil)
}

// ParseHidden decodes the hidden progress payload.
func ParseHidden(data []byte) ([]HiddenItem, error) {
	return parse("hidden items", data, func(items *[]HiddenItem) error {
		for i, item := range *items {
			if item.Type == TypeShow {
				if err := checkShow(item.Show); err != nil {
					return fmt.Errorf("hidden item %d: %w", i, err)
				}
			}
		}
		return nil
	})
}

// ParseWatchedShows decodes the watched shows payload.
func ParseWatchedShows(data []byte) ([]WatchedShow, error) {
	return parse("watched shows", data, func(shows *[]WatchedShow) error {
		for i := range *shows {
			if err := checkShow(&(*shows)[i].Show); err != nil {
				return fmt.Errorf("watched show %d: %w", i, err)
			}
		}
		return nil
	})
}

// ParseProgress decodes a show progress payload.
func ParseProgress(data []byte) (Progress, error) {
	return parse("progress", data, func(p *Progress) error {
		if p.Aired < 0 || p.Completed < 0 {
			return fmt.Errorf("negative counters %d/%d", p.Completed, p.Aired)
		}
		return nil
	})
}

// ParseShow decodes an extended show payload.
func ParseShow(data []byte) (Show, error) {
	return parse("show", data, checkShow)
}

// ParseSeasons decodes a seasons-with-episodes payload.
func ParseSeasons(data []byte) ([]Season, error) {
	return parse("seasons", data, func(seasons *[]Season) error {
		for _, s := range *seasons {
			for _, e := range s.Episodes {
				if e.Season != s.Number {
					return fmt.Errorf("episode %dx%d listed under season %d", e.Season, e.Number, s.Number)
				}
			}
		}
		return nil
	})
}
