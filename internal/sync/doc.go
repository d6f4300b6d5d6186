// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package sync drives the reconciliation pipeline on a fixed interval.

Each cycle:

 1. discovers the users to sync by joining the media server's Trakt plugin
    accounts with the stored users on their media-server id
 2. runs the aggregator for every discovered user, a bounded number of
    users at a time
 3. runs the library pass, fulfilling tracked requests that appeared in
    the media-server library

Cycles never overlap: the next one is scheduled only once the previous
one has returned, and RunOnce refuses to start while a cycle is running.
A failing user or a failing library pass is logged and retried on the
next cycle; it never stops the rest of the cycle.

Manager implements Start and Stop for the supervisor's sync service.
*/
package sync
