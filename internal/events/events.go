// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package events

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tracktarr/internal/models"
)

// Kind names an event type. Store-originated kinds double as the
// PostgreSQL NOTIFY channel names.
type Kind string

const (
	KindRequestStatusChanged Kind = "request_status_changed"
	KindRequestCreated       Kind = "request_created"
	KindUserJoinedRequest    Kind = "user_joined_request"
	KindUserLeftRequest      Kind = "user_left_request"
	KindReactionAdded        Kind = "reaction_added"
	KindRegistrationDecided  Kind = "registration_decided"
)

// StoreKinds lists the kinds the ledger emits through the store.
func StoreKinds() []Kind {
	return []Kind{KindRequestStatusChanged, KindRequestCreated, KindUserJoinedRequest, KindUserLeftRequest}
}

// Event is implemented by every payload type. Each payload type maps to
// exactly one Kind.
type Event interface {
	Kind() Kind
	validate() error
}

// RequestStatusChanged is emitted on every committed status transition.
type RequestStatusChanged struct {
	RequestID string        `json:"requestId"`
	OldStatus models.Status `json:"oldStatus"`
	NewStatus models.Status `json:"newStatus"`
}

func (RequestStatusChanged) Kind() Kind { return KindRequestStatusChanged }

func (e RequestStatusChanged) validate() error {
	if e.RequestID == "" {
		return errMissing("requestId")
	}
	if _, err := models.ParseStatus(string(e.OldStatus)); err != nil {
		return err
	}
	_, err := models.ParseStatus(string(e.NewStatus))
	return err
}

// RequestCreated is emitted when a Request row is inserted.
type RequestCreated struct {
	RequestID string `json:"requestId"`
}

func (RequestCreated) Kind() Kind { return KindRequestCreated }

func (e RequestCreated) validate() error {
	if e.RequestID == "" {
		return errMissing("requestId")
	}
	return nil
}

// UserJoinedRequest is emitted when a RequestUser row is created.
type UserJoinedRequest struct {
	RequestID string `json:"requestId"`
	UserID    string `json:"userId"`
}

func (UserJoinedRequest) Kind() Kind { return KindUserJoinedRequest }

func (e UserJoinedRequest) validate() error {
	return validateMembership(e.RequestID, e.UserID)
}

// UserLeftRequest is emitted when a RequestUser row is deleted and the
// Request survives.
type UserLeftRequest struct {
	RequestID string `json:"requestId"`
	UserID    string `json:"userId"`
}

func (UserLeftRequest) Kind() Kind { return KindUserLeftRequest }

func (e UserLeftRequest) validate() error {
	return validateMembership(e.RequestID, e.UserID)
}

// ReactionAdded is a chat reaction observed on the admin channel.
type ReactionAdded struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
	GuildID   string `json:"guildId,omitempty"`
	UserID    string `json:"userId"`
	Emoji     string `json:"emoji"`
	Bot       bool   `json:"bot,omitempty"`
}

func (ReactionAdded) Kind() Kind { return KindReactionAdded }

func (e ReactionAdded) validate() error {
	if e.MessageID == "" {
		return errMissing("messageId")
	}
	if e.UserID == "" {
		return errMissing("userId")
	}
	return nil
}

// RegistrationDecided carries an admin decision on a registration.
type RegistrationDecided struct {
	UserID   string `json:"userId"`
	Approved bool   `json:"approved"`
	AdminID  string `json:"adminId"`
}

func (RegistrationDecided) Kind() Kind { return KindRegistrationDecided }

func (e RegistrationDecided) validate() error {
	if e.UserID == "" {
		return errMissing("userId")
	}
	return nil
}

func validateMembership(requestID, userID string) error {
	if requestID == "" {
		return errMissing("requestId")
	}
	if userID == "" {
		return errMissing("userId")
	}
	return nil
}

func errMissing(field string) error {
	return fmt.Errorf("missing %s", field)
}

// Encode serializes e after validating it.
func Encode(e Event) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s event: %w", e.Kind(), err)
	}
	return json.Marshal(e)
}

// DecodeAs parses payload into E and validates it.
func DecodeAs[E Event](payload []byte) (E, error) {
	var e E
	if err := json.Unmarshal(payload, &e); err != nil {
		return e, fmt.Errorf("decode %s payload: %w", e.Kind(), err)
	}
	if err := e.validate(); err != nil {
		return e, fmt.Errorf("invalid %s payload: %w", e.Kind(), err)
	}
	return e, nil
}

func decode[E Event](payload []byte) (Event, error) {
	e, err := DecodeAs[E](payload)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Decode parses a payload of the given kind into its typed event.
func Decode(kind Kind, payload []byte) (Event, error) {
	switch kind {
	case KindRequestStatusChanged:
		return decode[RequestStatusChanged](payload)
	case KindRequestCreated:
		return decode[RequestCreated](payload)
	case KindUserJoinedRequest:
		return decode[UserJoinedRequest](payload)
	case KindUserLeftRequest:
		return decode[UserLeftRequest](payload)
	case KindReactionAdded:
		return decode[ReactionAdded](payload)
	case KindRegistrationDecided:
		return decode[RegistrationDecided](payload)
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}
