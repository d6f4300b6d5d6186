// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tomtom215/tracktarr/internal/discord"
	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/ledger"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/metrics"
	"github.com/tomtom215/tracktarr/internal/models"
)

// emailStatuses are the statuses worth an email. Chat gets every status.
var emailStatuses = []models.Status{
	models.StatusPending,
	models.StatusFulfilled,
	models.StatusMissing,
	models.StatusRejected,
}

// EmailAllowed reports whether a status change is emailed.
func EmailAllowed(status models.Status) bool {
	return slices.Contains(emailStatuses, status)
}

// Update is one request change as a user sees it.
type Update struct {
	RequestID string
	Info      media.Info
	Status    models.Status
}

func updateOf(req *models.Request) Update {
	u := Update{RequestID: req.ID(), Status: req.Status}
	if req.Media != nil {
		u.Info = req.Media.Info
	}
	return u
}

// Notice is a standalone message, sent immediately on every channel.
type Notice struct {
	Subject string
	Text    string
}

// DirectMessenger sends Discord direct messages.
type DirectMessenger interface {
	SendDM(ctx context.Context, userID string, msg discord.MessageSend) (discord.Message, error)
}

// Mailer sends one email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// EmailQueue batches request updates per address.
type EmailQueue interface {
	Enqueue(to string, u Update)
}

// UserLookup loads users by id.
type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// UserNotifier delivers request updates to the users attributed to them,
// on the channel each user registered with.
type UserNotifier struct {
	requests Requests
	users    UserLookup
	dm       DirectMessenger
	queue    EmailQueue
	mailer   Mailer
}

// NewUserNotifier creates a notifier. dm or mailer may be nil when the
// channel is not configured; users on it are then skipped.
func NewUserNotifier(requests Requests, users UserLookup, dm DirectMessenger, queue EmailQueue, mailer Mailer) *UserNotifier {
	return &UserNotifier{requests: requests, users: users, dm: dm, queue: queue, mailer: mailer}
}

// Subscribe registers the notifier's handlers on bus.
func (n *UserNotifier) Subscribe(bus *events.Bus) ([]events.Disposer, error) {
	status, err := events.Subscribe(bus, "users", n.OnStatusChanged)
	if err != nil {
		return nil, err
	}
	joined, err := events.Subscribe(bus, "users", n.OnUserJoined)
	if err != nil {
		status()
		return nil, err
	}
	left, err := events.Subscribe(bus, "users", n.OnUserLeft)
	if err != nil {
		status()
		joined()
		return nil, err
	}
	return []events.Disposer{status, joined, left}, nil
}

// OnStatusChanged notifies every user attributed to the request. A failure
// for one user does not stop the others.
func (n *UserNotifier) OnStatusChanged(ctx context.Context, e events.RequestStatusChanged) error {
	req, err := n.requests.Get(ctx, e.RequestID)
	if errors.Is(err, ledger.ErrRequestNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	u := updateOf(req)
	var errs []error
	for _, ru := range req.Users {
		user := ru.User
		if user == nil {
			if user, err = n.users.Get(ctx, ru.UserID); err != nil {
				errs = append(errs, fmt.Errorf("load user %s: %w", ru.UserID, err))
				continue
			}
		}
		if err := n.Send(ctx, user, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnUserJoined tells a user their request is tracked.
func (n *UserNotifier) OnUserJoined(ctx context.Context, e events.UserJoinedRequest) error {
	req, err := n.requests.Get(ctx, e.RequestID)
	if errors.Is(err, ledger.ErrRequestNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user, err := n.users.Get(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", e.UserID, err)
	}
	return n.Send(ctx, user, updateOf(req))
}

// OnUserLeft only records the departure.
func (n *UserNotifier) OnUserLeft(ctx context.Context, e events.UserLeftRequest) error {
	logging.Ctx(ctx).Info().Str("request_id", e.RequestID).Str("user_id", e.UserID).Msg("User no longer wants request")
	return nil
}

// Send delivers u to user on their messaging channel: a direct message on
// Discord, a queued email otherwise.
func (n *UserNotifier) Send(ctx context.Context, user *models.User, u Update) error {
	switch user.MessagingKey {
	case models.MessagingDiscord:
		if n.dm == nil {
			return nil
		}
		_, err := n.dm.SendDM(ctx, user.MessagingID, discord.MessageSend{Embeds: []discord.Embed{userEmbed(u)}})
		if err != nil {
			return fmt.Errorf("dm %s: %w", user.Name, err)
		}
		return nil
	case models.MessagingEmail:
		if n.queue == nil {
			return nil
		}
		if !EmailAllowed(u.Status) {
			logging.Ctx(ctx).Debug().Str("user", user.Name).Str("status", string(u.Status)).Msg("Status not emailed")
			return nil
		}
		n.queue.Enqueue(user.MessagingID, u)
		return nil
	default:
		logging.Ctx(ctx).Warn().Str("user", user.Name).Str("messaging_key", user.MessagingKey).Msg("Unknown messaging channel, dropping notification")
		return nil
	}
}

// Direct sends a notice to user right away.
func (n *UserNotifier) Direct(ctx context.Context, user *models.User, notice Notice) error {
	switch user.MessagingKey {
	case models.MessagingDiscord:
		if n.dm == nil {
			return nil
		}
		_, err := n.dm.SendDM(ctx, user.MessagingID, discord.MessageSend{Content: "**" + notice.Subject + "**\n" + notice.Text})
		return err
	case models.MessagingEmail:
		if n.mailer == nil {
			return nil
		}
		err := n.mailer.Send(ctx, noticeEmail(user.MessagingID, notice))
		metrics.RecordMessage("email", err)
		return err
	default:
		logging.Ctx(ctx).Warn().Str("user", user.Name).Str("messaging_key", user.MessagingKey).Msg("Unknown messaging channel, dropping notice")
		return nil
	}
}
