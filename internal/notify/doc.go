// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package notify turns ledger events into admin and user messages.

Components:

  - AdminController: one admin-channel message and thread per request,
    kept in sync with the request status, and the reaction table that lets
    admins change a status or decide a registration
  - UserNotifier: per-user delivery by messaging key (Discord direct
    message now, email through the batcher)
  - EmailBatcher: per-recipient debounce that merges request updates into
    one email
  - SMTPMailer: the mail transport

Handlers re-read requests from the store; event payloads only carry ids.
Unknown reactions, reactions from non-admins and unknown messaging keys are
logged and dropped.
*/
package notify
