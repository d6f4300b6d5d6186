// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package discord is a minimal Discord bot client.

It covers what the admin channel and user notifications need:

  - Client: REST calls (messages, embeds, threads, reactions, direct
    messages) paced by a token-bucket limiter, with a single retry on 429
  - Gateway: a websocket session that heartbeats, identifies with the
    guild reaction intent and reports MESSAGE_REACTION_ADD dispatches

Gateway implements suture.Service and reconnects with exponential backoff
(1s doubling up to 32s) until its context is canceled.
*/
package discord
