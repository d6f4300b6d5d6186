// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package supervisor runs the long-lived Tracktarr services under a suture v4
supervisor tree.

The tree has three layers, each its own supervisor:

  - data: the PostgreSQL notification listener feeding the change bus
  - messaging: the sync manager, the Discord gateway, the email batcher and
    the bus subscriptions of the admin controller, the user notifier and
    the registration service
  - api: the HTTP server

A service that returns an error is restarted by its layer with backoff;
a crash in one layer leaves the others running. Supervisor events are
logged through sutureslog with the zerolog-backed slog logger.

Adapters turning components into suture.Service live in the services
subpackage.
*/
package supervisor
