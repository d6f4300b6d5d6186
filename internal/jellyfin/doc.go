// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package jellyfin is the media-server client.

It lists the collected library (the availability source of the ledger),
provisions household accounts on registration approval, and reads the
Trakt plugin configuration, which is where each media-server user's
watch-tracker access token lives.

API Reference: https://api.jellyfin.org/
*/
package jellyfin
