// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package aggregator

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/ledger"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/metrics"
	"github.com/tomtom215/tracktarr/internal/models"
	"github.com/tomtom215/tracktarr/internal/trakt"
)

// KindFacets are the activity facets that can change the output of a kind.
var KindFacets = map[models.Kind][]trakt.Facet{
	models.KindWatchlisted: {trakt.FacetWatchlistUpdated},
	models.KindListed:      {trakt.FacetListsLiked},
	models.KindHighRated:   {trakt.FacetMoviesRated, trakt.FacetEpisodesRated, trakt.FacetShowsRated, trakt.FacetSeasonsRated},
	models.KindProgress:    {trakt.FacetShowsHidden, trakt.FacetShowsDropped, trakt.FacetMoviesWatched, trakt.FacetEpisodesWatched},
}

// CursorStore persists the last successful sync per (user, kind).
type CursorStore interface {
	Cursors(ctx context.Context, userID string) (map[models.Kind]time.Time, error)
	Advance(ctx context.Context, userID string, kind models.Kind, at time.Time) error
}

// Ledger applies a kind's desired set for a user.
type Ledger interface {
	SyncTargeted(ctx context.Context, userID string, kind models.Kind, desired []media.Info) (ledger.SyncResult, error)
}

// Handler computes the desired media of one kind for a user.
type Handler func(ctx context.Context, user trakt.User) ([]media.Info, error)

// Aggregator runs the kind handlers of a user and hands their output to
// the ledger.
type Aggregator struct {
	api      trakt.API
	cursors  CursorStore
	ledger   Ledger
	expander *Expander
	handlers map[models.Kind]Handler
	now      func() time.Time
}

// New creates an aggregator with the standard handlers.
func New(api trakt.API, cursors CursorStore, l Ledger, cfg *config.SyncConfig) *Aggregator {
	a := &Aggregator{
		api:      api,
		cursors:  cursors,
		ledger:   l,
		expander: NewExpander(api, cfg.BufferDuration),
		now:      time.Now,
	}
	a.handlers = map[models.Kind]Handler{
		models.KindWatchlisted: a.watchlisted(cfg.WantedLimit),
		models.KindListed:      a.listed(cfg.ListName),
		models.KindHighRated:   a.highRated(cfg.RatingThreshold, cfg.RatedLimit),
		models.KindProgress:    a.inProgress(cfg.ProgressLimit),
	}
	return a
}

// Handler returns the handler of kind.
func (a *Aggregator) Handler(kind models.Kind) Handler {
	return a.handlers[kind]
}

func (a *Aggregator) watchlisted(limit int) Handler {
	return func(ctx context.Context, user trakt.User) ([]media.Info, error) {
		items, err := trakt.ReleasedWatchlist(ctx, a.api, user, a.now(), limit)
		if err != nil {
			return nil, err
		}
		return a.expander.Expand(ctx, items, true)
	}
}

func (a *Aggregator) listed(name string) Handler {
	return func(ctx context.Context, user trakt.User) ([]media.Info, error) {
		items, err := trakt.NamedList(ctx, a.api, user, name)
		if err != nil {
			return nil, err
		}
		return a.expander.Expand(ctx, items, false)
	}
}

func (a *Aggregator) highRated(threshold, limit int) Handler {
	return func(ctx context.Context, user trakt.User) ([]media.Info, error) {
		items, err := trakt.HighRated(ctx, a.api, user, threshold, limit)
		if err != nil {
			return nil, err
		}
		return a.expander.Expand(ctx, items, false)
	}
}

// inProgress buffers each unfinished show from its next episode.
func (a *Aggregator) inProgress(limit int) Handler {
	return func(ctx context.Context, user trakt.User) ([]media.Info, error) {
		shows, err := trakt.InProgressShows(ctx, a.api, user, limit)
		if err != nil {
			return nil, err
		}
		var out []media.Info
		for _, s := range shows {
			season, episode := 1, 1
			if next := s.Progress.NextEpisode; next != nil {
				season, episode = next.Season, next.Number
			}
			infos, err := a.expander.BufferedExpansion(ctx, s.Show, season, episode)
			if err != nil {
				return nil, err
			}
			out = append(out, infos...)
		}
		return out, nil
	}
}

// KindsToSync returns the kinds whose activity moved past their cursor.
// A kind with no cursor, or with no activity recorded at all, is always
// synced.
func (a *Aggregator) KindsToSync(ctx context.Context, user trakt.User) ([]models.Kind, error) {
	cursors, err := a.cursors.Cursors(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load cursors: %w", err)
	}
	activities, err := a.api.LastActivities(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("last activities: %w", err)
	}

	var kinds []models.Kind
	for _, kind := range models.Kinds() {
		cursor, ok := cursors[kind]
		latest := activities.Latest(KindFacets[kind]...)
		if !ok || latest == nil || latest.After(cursor) {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// KindResult is the outcome of one (user, kind) sync.
type KindResult struct {
	Kind   models.Kind
	Wanted int
	Ledger ledger.SyncResult
	Err    error
}

// Result is the outcome of a user sync. Err is set when the kinds to sync
// could not be determined; per-kind failures are in Kinds.
type Result struct {
	UserID string
	Kinds  []KindResult
	Err    error
}

// Failed reports whether anything failed.
func (r Result) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, k := range r.Kinds {
		if k.Err != nil {
			return true
		}
	}
	return false
}

// SyncUser syncs every due kind of user sequentially. A failing kind keeps
// its cursor and does not stop the remaining kinds.
func (a *Aggregator) SyncUser(ctx context.Context, user models.AuthenticatedUser) Result {
	ctx = logging.ContextWithLogger(ctx, logging.LoggerFromContext(ctx).With().Str("user_id", user.ID).Str("user", user.Name).Logger())
	tu := trakt.User{ID: user.ID, AccessToken: user.AccessToken}
	result := Result{UserID: user.ID}

	kinds, err := a.KindsToSync(ctx, tu)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Cannot determine kinds to sync")
		result.Err = err
		return result
	}
	for _, kind := range models.Kinds() {
		if !slices.Contains(kinds, kind) {
			metrics.RecordKindSync(string(kind), "skipped", 0)
		}
	}
	if len(kinds) == 0 {
		logging.Ctx(ctx).Debug().Msg("No activity since last sync")
		return result
	}
	logging.Ctx(ctx).Info().Interface("kinds", kinds).Msg("Syncing user")

	for _, kind := range kinds {
		kr := a.syncKind(ctx, tu, kind)
		result.Kinds = append(result.Kinds, kr)
	}
	return result
}

func (a *Aggregator) syncKind(ctx context.Context, user trakt.User, kind models.Kind) KindResult {
	kr := KindResult{Kind: kind}
	handler, ok := a.handlers[kind]
	if !ok {
		kr.Err = fmt.Errorf("no handler for kind %s", kind)
		return kr
	}

	desired, err := handler(ctx, user)
	if err != nil {
		kr.Err = fmt.Errorf("%s handler: %w", kind, err)
		metrics.RecordKindSync(string(kind), "failed", 0)
		logging.Ctx(ctx).Warn().Err(err).Str("kind", string(kind)).Msg("Kind sync failed, will retry next cycle")
		return kr
	}
	kr.Wanted = len(desired)

	kr.Ledger, err = a.ledger.SyncTargeted(ctx, user.ID, kind, desired)
	if err != nil {
		kr.Err = fmt.Errorf("%s ledger: %w", kind, err)
		metrics.RecordKindSync(string(kind), "failed", kr.Wanted)
		logging.Ctx(ctx).Error().Err(err).Str("kind", string(kind)).Msg("Ledger sync failed, will retry next cycle")
		return kr
	}

	if err := a.cursors.Advance(ctx, user.ID, kind, a.now()); err != nil {
		// The ledger already converged; the next cycle redoes an idempotent sync.
		kr.Err = fmt.Errorf("%s cursor: %w", kind, err)
		metrics.RecordKindSync(string(kind), "failed", kr.Wanted)
		logging.Ctx(ctx).Error().Err(err).Str("kind", string(kind)).Msg("Cursor advance failed")
		return kr
	}

	metrics.RecordKindSync(string(kind), "synced", kr.Wanted)
	logging.Ctx(ctx).Info().
		Str("kind", string(kind)).
		Int("wanted", kr.Wanted).
		Int("created", kr.Ledger.Created).
		Int("joined", kr.Ledger.Joined).
		Int("left", kr.Ledger.Left).
		Int("deleted", kr.Ledger.Deleted).
		Msg("Kind synced")
	return kr
}
