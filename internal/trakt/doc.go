// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package trakt is the watch-tracker client.

Layers, innermost first:

  - Client: raw HTTP calls. Every response goes through a Parse* function
    and either yields a fully typed value or a *ParseError. HTTP 429 is
    retried exactly once after the server-provided delay.
  - CircuitBreakerClient: gobreaker protection around an API.
  - CachedClient: response caching keyed by the user's activity facet
    timestamps, so an entry is naturally invalidated when the user acts.

Queries built on top of API (ReleasedWatchlist, HighRated, InProgressShows)
hold the filtering and ordering rules that do not belong to transport.
*/
package trakt
