// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package models

import "time"

// Messaging keys identify the channel a user is reached on.
const (
	MessagingDiscord = "discord"
	MessagingEmail   = "email"
)

// User is a household member.
type User struct {
	ID string
	// Name doubles as the media-server account name.
	Name string
	// MediaServerID is empty until the registration is approved and provisioned.
	MediaServerID     string
	MessagingKey      string
	MessagingID       string
	ApprovalMessageID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Registered reports whether the user has a media-server account.
func (u *User) Registered() bool {
	return u.MediaServerID != ""
}

// AuthenticatedUser is a user together with the watch-tracker token found
// for their media-server account.
type AuthenticatedUser struct {
	User
	AccessToken string
}
