// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

// Package services adapts Tracktarr components to suture.Service.
//
// Components that already implement Serve(ctx) error (the database
// listener, the Discord gateway, the email batcher) are added to the tree
// directly. The adapters here cover the rest:
//
//   - SyncService: a Start/Stop manager, stopped when ctx is canceled
//   - HTTPServerService: an http.Server with graceful shutdown
//   - SubscriptionService: change-bus subscriptions, disposed on shutdown
package services
