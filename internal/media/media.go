// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

// Package media normalizes watchable items coming from the watch tracker
// and the media server into a single identity used for deduplication.
//
// Identity is the triple (external id, season, episode) with -1 standing in
// for an absent number. Episodes without an external id all share the empty
// string and therefore collide with each other when their numbers match.
// That is a known limitation.
package media

import (
	"errors"
	"fmt"
)

// Type is the kind of a watchable unit. Shows and seasons never become Media;
// they are expanded into episodes first.
type Type string

const (
	TypeMovie   Type = "movie"
	TypeEpisode Type = "episode"
)

// ParseType validates a stored or received type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeMovie, TypeEpisode:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown media type %q", s)
	}
}

// Info describes a watchable unit before it is persisted.
type Info struct {
	ExternalID string
	Type       Type
	Title      string
	Year       int // 0 when unknown
	Season     *int
	Episode    *int
}

// Movie builds the Info of a movie.
func Movie(externalID, title string, year int) Info {
	return Info{ExternalID: externalID, Type: TypeMovie, Title: title, Year: year}
}

// Episode builds the Info of an episode. Title and year are the show's.
func Episode(externalID, title string, year, season, episode int) Info {
	return Info{
		ExternalID: externalID,
		Type:       TypeEpisode,
		Title:      title,
		Year:       year,
		Season:     &season,
		Episode:    &episode,
	}
}

// Validation errors.
var (
	ErrUnknownType     = errors.New("unknown media type")
	ErrEpisodeNumbers  = errors.New("episode requires season and episode numbers")
	ErrMovieHasNumbers = errors.New("movie cannot carry season or episode numbers")
)

// Validate checks the structural invariants of an Info.
func (i Info) Validate() error {
	switch i.Type {
	case TypeMovie:
		if i.Season != nil || i.Episode != nil {
			return ErrMovieHasNumbers
		}
	case TypeEpisode:
		if i.Season == nil || i.Episode == nil {
			return ErrEpisodeNumbers
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, i.Type)
	}
	return nil
}

// SeasonNumber returns the season number or -1.
func (i Info) SeasonNumber() int {
	return numberOrAbsent(i.Season)
}

// EpisodeNumber returns the episode number or -1.
func (i Info) EpisodeNumber() int {
	return numberOrAbsent(i.Episode)
}

func numberOrAbsent(n *int) int {
	if n == nil {
		return -1
	}
	return *n
}

// Label renders a short human readable title, e.g. "Foo (2020) S01E02".
func (i Info) Label() string {
	label := i.Title
	if i.Year > 0 {
		label = fmt.Sprintf("%s (%d)", label, i.Year)
	}
	if i.Type == TypeEpisode {
		label = fmt.Sprintf("%s S%02dE%02d", label, i.SeasonNumber(), i.EpisodeNumber())
	}
	return label
}

// Key is the deduplication identity of a Media. It is comparable and safe
// to use as a map key.
type Key struct {
	ExternalID string
	Season     int
	Episode    int
}

// Identify returns the identity key of info.
func Identify(info Info) Key {
	return Key{
		ExternalID: info.ExternalID,
		Season:     info.SeasonNumber(),
		Episode:    info.EpisodeNumber(),
	}
}

// String renders the key as "id:season:episode".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%d", k.ExternalID, k.Season, k.Episode)
}

// Same reports whether a and b designate the same Media. Cosmetic fields
// (title, year) are ignored.
func Same(a, b Info) bool {
	return a.Type == b.Type && Identify(a) == Identify(b)
}
