// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/tracktarr/internal/discord"
	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/ledger"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/models"
)

// AdminChat is the chat surface of the admin channel.
type AdminChat interface {
	SendMessage(ctx context.Context, channelID string, msg discord.MessageSend) (discord.Message, error)
	SendThreadMessage(ctx context.Context, threadID, content string) (discord.Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg discord.MessageSend) (discord.Message, error)
	StartThread(ctx context.Context, channelID, messageID, name string) (discord.Channel, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	RemoveAllReactions(ctx context.Context, channelID, messageID string) error
}

// Requests is the ledger surface the notifiers use.
type Requests interface {
	Get(ctx context.Context, requestID string) (*models.Request, error)
	GetByThread(ctx context.Context, threadID string) (*models.Request, error)
	AttachThread(ctx context.Context, requestID, threadID string) error
	SetStatus(ctx context.Context, requestID string, status models.Status) error
}

// Registrations finds the user a registration message belongs to.
type Registrations interface {
	GetByApprovalMessage(ctx context.Context, messageID string) (*models.User, error)
}

// Publisher publishes events on the bus.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// AdminController mirrors requests into the admin channel and turns admin
// reactions into actions.
//
// A request thread is started from its head message, so the thread id is
// also the head message id.
type AdminController struct {
	chat          AdminChat
	requests      Requests
	registrations Registrations
	publisher     Publisher
	channelID     string
	admins        map[string]struct{}
}

// NewAdminController creates a controller for channelID. Only reactions
// from adminIDs are acted upon.
func NewAdminController(chat AdminChat, requests Requests, registrations Registrations, publisher Publisher, channelID string, adminIDs []string) *AdminController {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &AdminController{
		chat:          chat,
		requests:      requests,
		registrations: registrations,
		publisher:     publisher,
		channelID:     channelID,
		admins:        admins,
	}
}

// Subscribe registers the controller's handlers on bus.
func (a *AdminController) Subscribe(bus *events.Bus) ([]events.Disposer, error) {
	var disposers []events.Disposer
	register := func(d events.Disposer, err error) error {
		if err != nil {
			return err
		}
		disposers = append(disposers, d)
		return nil
	}

	err := errors.Join(
		register(events.Subscribe(bus, "admin", a.OnRequestCreated)),
		register(events.Subscribe(bus, "admin", a.OnStatusChanged)),
		register(events.Subscribe(bus, "admin", a.OnReaction)),
	)
	if err != nil {
		for _, d := range disposers {
			d()
		}
		return nil, err
	}
	return disposers, nil
}

// OnRequestCreated posts the head message of a new request, reacts with
// its status and opens its thread. A request that already has a thread is
// left alone.
func (a *AdminController) OnRequestCreated(ctx context.Context, e events.RequestCreated) error {
	req, err := a.requests.Get(ctx, e.RequestID)
	if errors.Is(err, ledger.ErrRequestNotFound) {
		logging.Ctx(ctx).Debug().Str("request_id", e.RequestID).Msg("Request gone before its admin message was posted")
		return nil
	}
	if err != nil {
		return err
	}
	if req.ThreadID != "" {
		return nil
	}

	msg, err := a.chat.SendMessage(ctx, a.channelID, discord.MessageSend{Embeds: []discord.Embed{requestEmbed(req)}})
	if err != nil {
		return fmt.Errorf("post request %s: %w", req.ID(), err)
	}
	if err := a.chat.AddReaction(ctx, a.channelID, msg.ID, StatusEmoji(req.Status)); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("request_id", req.ID()).Msg("Failed to add status reaction")
	}
	thread, err := a.chat.StartThread(ctx, a.channelID, msg.ID, ThreadName(req.Media.Info))
	if err != nil {
		return fmt.Errorf("start thread for request %s: %w", req.ID(), err)
	}
	if err := a.requests.AttachThread(ctx, req.ID(), thread.ID); err != nil {
		return err
	}

	logging.Ctx(ctx).Info().Str("request_id", req.ID()).Str("thread_id", thread.ID).Msg("Request posted to admin channel")
	return nil
}

// OnStatusChanged reports the new status in the request thread and updates
// the head message. The status shown is the stored one.
func (a *AdminController) OnStatusChanged(ctx context.Context, e events.RequestStatusChanged) error {
	req, err := a.requests.Get(ctx, e.RequestID)
	if errors.Is(err, ledger.ErrRequestNotFound) {
		logging.Ctx(ctx).Debug().Str("request_id", e.RequestID).Msg("Status change for a deleted request")
		return nil
	}
	if err != nil {
		return err
	}
	if req.ThreadID == "" {
		logging.Ctx(ctx).Warn().Str("request_id", req.ID()).Msg("Status changed before the admin thread exists")
		return nil
	}

	if _, err := a.chat.SendThreadMessage(ctx, req.ThreadID, "Statut mis à jour: "+StatusLabel(req.Status)); err != nil {
		return fmt.Errorf("post status to thread %s: %w", req.ThreadID, err)
	}
	if _, err := a.chat.EditMessage(ctx, a.channelID, req.ThreadID, discord.MessageSend{Embeds: []discord.Embed{requestEmbed(req)}}); err != nil {
		return fmt.Errorf("edit head message %s: %w", req.ThreadID, err)
	}
	if err := a.chat.RemoveAllReactions(ctx, a.channelID, req.ThreadID); err != nil {
		return fmt.Errorf("clear reactions of %s: %w", req.ThreadID, err)
	}
	return a.chat.AddReaction(ctx, a.channelID, req.ThreadID, StatusEmoji(req.Status))
}

// OnReaction applies the action an admin reaction stands for. Reactions
// from bots, outside the admin channel, from non-admins or without a
// mapping are dropped.
func (a *AdminController) OnReaction(ctx context.Context, e events.ReactionAdded) error {
	log := logging.Ctx(ctx).With().
		Str("message_id", e.MessageID).
		Str("user_id", e.UserID).
		Str("emoji", e.Emoji).
		Logger()

	if e.Bot || e.GuildID == "" || e.ChannelID != a.channelID {
		return nil
	}
	if _, ok := a.admins[e.UserID]; !ok {
		log.Warn().Msg("Ignoring reaction from a non-admin")
		return nil
	}

	user, err := a.registrations.GetByApprovalMessage(ctx, e.MessageID)
	switch {
	case err == nil:
		return a.decideRegistration(ctx, user, e)
	case !errors.Is(err, models.ErrNotFound):
		return err
	}

	req, err := a.requests.GetByThread(ctx, e.MessageID)
	if errors.Is(err, ledger.ErrRequestNotFound) {
		log.Debug().Msg("Reaction on a message that is neither a request nor a registration")
		return nil
	}
	if err != nil {
		return err
	}

	status, ok := StatusForReaction(e.Emoji)
	if !ok {
		log.Warn().Msg("Unknown admin reaction")
		return nil
	}
	if err := a.requests.SetStatus(ctx, req.ID(), status); err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition) {
			log.Warn().Err(err).Str("request_id", req.ID()).Msg("Admin reaction asks for a disallowed status change")
			return nil
		}
		return err
	}
	log.Info().Str("request_id", req.ID()).Str("status", string(status)).Msg("Request status set by admin")
	return nil
}

func (a *AdminController) decideRegistration(ctx context.Context, user *models.User, e events.ReactionAdded) error {
	var approved bool
	switch e.Emoji {
	case ReactionApprove:
		approved = true
	case ReactionReject:
	default:
		logging.Ctx(ctx).Warn().Str("emoji", e.Emoji).Str("user", user.Name).Msg("Unknown reaction on a registration")
		return nil
	}
	return a.publisher.Publish(ctx, events.RegistrationDecided{UserID: user.ID, Approved: approved, AdminID: e.UserID})
}

// NewRegistration posts a registration for admin review and returns the
// message id the decision reactions will land on.
func (a *AdminController) NewRegistration(ctx context.Context, user *models.User) (string, error) {
	msg, err := a.chat.SendMessage(ctx, a.channelID, discord.MessageSend{Embeds: []discord.Embed{registrationEmbed(user)}})
	if err != nil {
		return "", fmt.Errorf("post registration of %s: %w", user.Name, err)
	}
	for _, emoji := range []string{ReactionApprove, ReactionReject} {
		if err := a.chat.AddReaction(ctx, a.channelID, msg.ID, emoji); err != nil {
			return msg.ID, fmt.Errorf("add %s to registration: %w", emoji, err)
		}
	}
	return msg.ID, nil
}
