// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

// Package registration onboards household members reached by email.
//
// A registration upserts the user and posts it to the admin channel.
// The admin's reaction comes back as a RegistrationDecided event: an
// approval provisions the media-server account and sends the credentials,
// a rejection tells the user. Generated passwords are never stored.
package registration
