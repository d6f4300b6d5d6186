// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package aggregator

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/trakt"
)

// DefaultBufferCount is the look-ahead used when a show has no runtime.
const DefaultBufferCount = 3

// Expander turns shows and seasons into episodes.
type Expander struct {
	api            trakt.API
	bufferDuration time.Duration
}

// NewExpander creates an expander whose buffered expansion targets
// bufferDuration of viewing.
func NewExpander(api trakt.API, bufferDuration time.Duration) *Expander {
	return &Expander{api: api, bufferDuration: bufferDuration}
}

func (e *Expander) showData(ctx context.Context, show trakt.Show) (trakt.Show, []trakt.Season, error) {
	details, err := e.api.ShowDetails(ctx, show.IDs.Trakt)
	if err != nil {
		return trakt.Show{}, nil, fmt.Errorf("show %d details: %w", show.IDs.Trakt, err)
	}
	seasons, err := e.api.Seasons(ctx, show.IDs.Trakt)
	if err != nil {
		return trakt.Show{}, nil, fmt.Errorf("show %d seasons: %w", show.IDs.Trakt, err)
	}
	return details, seasons, nil
}

// ExpandShow returns every aired regular episode of show.
func (e *Expander) ExpandShow(ctx context.Context, show trakt.Show) ([]media.Info, error) {
	details, seasons, err := e.showData(ctx, show)
	if err != nil {
		return nil, err
	}
	return toInfos(show, airedFrom(regularEpisodes(seasons), details.AiredEpisodes, 0)), nil
}

// ExpandSeason returns the aired episodes of one season of show. An
// unknown season yields nothing.
func (e *Expander) ExpandSeason(ctx context.Context, show trakt.Show, seasonNumber int) ([]media.Info, error) {
	details, seasons, err := e.showData(ctx, show)
	if err != nil {
		return nil, err
	}
	return toInfos(show, seasonEpisodes(seasons, details.AiredEpisodes, seasonNumber)), nil
}

// BufferedExpansion returns up to BufferCount episodes of show starting at
// (startSeason, startEpisode), never past the aired count.
func (e *Expander) BufferedExpansion(ctx context.Context, show trakt.Show, startSeason, startEpisode int) ([]media.Info, error) {
	details, seasons, err := e.showData(ctx, show)
	if err != nil {
		return nil, err
	}
	count := BufferCount(e.bufferDuration, details.Runtime)
	episodes, ok := bufferedEpisodes(seasons, details.AiredEpisodes, startSeason, startEpisode, count)
	if !ok {
		logging.Ctx(ctx).Debug().Int("show_id", show.IDs.Trakt).Int("season", startSeason).Int("episode", startEpisode).Msg("Start episode not found, nothing to buffer")
	}
	return toInfos(show, episodes), nil
}

// Expand maps tracker items to media. Movies and episodes map directly;
// shows and seasons are expanded fully, or with the buffered expansion
// when buffered is set. Shows start their buffer at 1x1 and seasons at
// their first episode.
func (e *Expander) Expand(ctx context.Context, items []trakt.Item, buffered bool) ([]media.Info, error) {
	var out []media.Info
	for _, item := range items {
		switch item.Type {
		case trakt.TypeMovie:
			out = append(out, media.Movie(item.Movie.IDs.IMDBID(), item.Movie.Title, deref(item.Movie.Year)))
		case trakt.TypeEpisode:
			out = append(out, episodeInfo(*item.Show, *item.Episode))
		}
	}

	for _, typ := range []trakt.MediaType{trakt.TypeShow, trakt.TypeSeason} {
		for _, item := range items {
			if item.Type != typ {
				continue
			}
			var (
				infos []media.Info
				err   error
			)
			switch {
			case typ == trakt.TypeShow && buffered:
				infos, err = e.BufferedExpansion(ctx, *item.Show, 1, 1)
			case typ == trakt.TypeShow:
				infos, err = e.ExpandShow(ctx, *item.Show)
			case buffered:
				infos, err = e.BufferedExpansion(ctx, *item.Show, item.Season.Number, 1)
			default:
				infos, err = e.ExpandSeason(ctx, *item.Show, item.Season.Number)
			}
			if err != nil {
				return nil, err
			}
			out = append(out, infos...)
		}
	}
	return out, nil
}

// BufferCount is ceil(buffer / runtime), or DefaultBufferCount when the
// runtime is unknown.
func BufferCount(buffer time.Duration, runtimeMinutes *int) int {
	if runtimeMinutes == nil || *runtimeMinutes <= 0 {
		return DefaultBufferCount
	}
	return int(math.Ceil(buffer.Minutes() / float64(*runtimeMinutes)))
}

// regularEpisodes flattens every season but the specials (season 0).
func regularEpisodes(seasons []trakt.Season) []trakt.Episode {
	var episodes []trakt.Episode
	for _, s := range seasons {
		if s.Number > 0 {
			episodes = append(episodes, s.Episodes...)
		}
	}
	return episodes
}

// airedFrom keeps the episodes whose absolute index, counted from
// startIndex, is within the aired count. An unknown aired count yields
// nothing.
func airedFrom(episodes []trakt.Episode, aired *int, startIndex int) []trakt.Episode {
	if aired == nil {
		return nil
	}
	available := max(0, *aired-startIndex)
	return episodes[:min(available, len(episodes))]
}

func seasonEpisodes(seasons []trakt.Season, aired *int, seasonNumber int) []trakt.Episode {
	idx := slices.IndexFunc(seasons, func(s trakt.Season) bool { return s.Number == seasonNumber })
	if idx < 0 {
		return nil
	}
	startIndex := 0
	for _, s := range seasons {
		if s.Number > 0 && s.Number < seasonNumber {
			startIndex += len(s.Episodes)
		}
	}
	return airedFrom(seasons[idx].Episodes, aired, startIndex)
}

func bufferedEpisodes(seasons []trakt.Season, aired *int, startSeason, startEpisode, count int) ([]trakt.Episode, bool) {
	episodes := regularEpisodes(seasons)
	idx := slices.IndexFunc(episodes, func(ep trakt.Episode) bool {
		return ep.Season == startSeason && ep.Number == startEpisode
	})
	if idx < 0 {
		return nil, false
	}
	end := min(idx+count, len(episodes))
	if aired != nil {
		end = min(end, *aired)
	}
	if end <= idx {
		return nil, true
	}
	return episodes[idx:end], true
}

func episodeInfo(show trakt.Show, ep trakt.Episode) media.Info {
	return media.Episode(ep.IDs.IMDBID(), show.Title, deref(show.Year), ep.Season, ep.Number)
}

func toInfos(show trakt.Show, episodes []trakt.Episode) []media.Info {
	infos := make([]media.Info, 0, len(episodes))
	for _, ep := range episodes {
		infos = append(infos, episodeInfo(show, ep))
	}
	return infos
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
