// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package aggregator turns a user's watch-tracker activity into the set of
media the household should have, one request kind at a time.

Each kind has a handler (watchlisted, listed, high-rated, in-progress)
returning concrete movies and episodes. Shows and seasons are expanded
into episodes, either fully (every aired episode) or with a bounded
look-ahead sized by a target watch-buffer duration.

A kind is only recomputed when one of its activity facets moved past the
stored cursor. The cursor advances after the ledger accepted the result,
so a failed kind is retried on the next cycle. Kinds of one user run
sequentially; a failure in one kind never stops the others.
*/
package aggregator
