// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

// Package database is the PostgreSQL store of Tracktarr.
//
// It owns the schema and its versioned migrations, and exposes:
//
//   - RequestStore, the ledger persistence (medias, media_requests and
//     request_users) with transactional batches.
//   - UserStore, upserted on first contact and on registration.
//   - CursorStore, the per (user, kind) last successful sync time.
//   - Listener, which LISTENs on the ledger channels and republishes each
//     notification on the in-process event bus.
//
// Ledger events are written with pg_notify inside the transaction that
// produced them, so PostgreSQL delivers them on commit and discards them on
// rollback.
package database
