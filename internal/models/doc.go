// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package models defines the persisted entities shared by the ledger, the
aggregator and the notification layer.

Entities:

  - Media: a canonical watchable unit (movie or episode), see package media
  - Request: the tracked desire and fulfillment status of one Media
  - RequestUser: attribution of a Request to a User, with the set of
    RequestKinds that explain why the user wants it
  - User: a household member with a messaging channel and, once approved,
    a media-server account
  - Cursor: the last successful sync time per (user, kind)

Media, Request and RequestUser are written exclusively by the ledger.
Cursors are written exclusively by the aggregator.
*/
package models
