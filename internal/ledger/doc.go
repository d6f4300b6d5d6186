// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package ledger owns Media, Request and RequestUser rows.

It reconciles two inputs against the stored requests:

  - Targeted sync: the wanted medias of one (user, kind) pair. Plan computes
    a pure Diff, SyncTargeted applies it in a single transaction in the order
    insert, link, unlink.
  - Availability sync: the contents of the media server library. Tracked
    requests (pending or missing) whose media is present become fulfilled.
    Rejected and canceled requests are never touched by this pass.

Status transitions are validated by CanTransition:

	pending   -> fulfilled | missing | rejected | canceled
	missing   -> pending | fulfilled | rejected
	rejected  -> pending
	canceled  -> pending
	fulfilled -> (terminal)

Events are emitted through Tx.Notify so they are published only when the
transaction commits. The ledger never delivers events to listeners itself.
*/
package ledger
