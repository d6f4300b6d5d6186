// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package registration

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/jellyfin"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/models"
	"github.com/tomtom215/tracktarr/internal/notify"
)

// User-facing messages.
const (
	MsgNameTaken   = "Ce nom d'utilisateur existe déjà, merci d'en choisir un autre"
	MsgFailed      = "Erreur lors de l'inscription"
	subjectWelcome = "Bienvenue sur %s"
	subjectDenied  = "Inscription refusée"
	subjectFailed  = "Inscription"
)

const (
	passwordLength   = 16
	passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Form is a registration submitted through the API.
type Form struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,username"`
}

// Users persists registered users.
type Users interface {
	Upsert(ctx context.Context, name, messagingKey, messagingID string) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	SetMediaServerID(ctx context.Context, id, mediaServerID string) error
	SetApprovalMessageID(ctx context.Context, id, messageID string) error
}

// Admin asks the admins to review a registration.
type Admin interface {
	NewRegistration(ctx context.Context, user *models.User) (string, error)
}

// MediaServer provisions accounts.
type MediaServer interface {
	RegisterUser(ctx context.Context, name, password string) (string, error)
	ResetPassword(ctx context.Context, userID, password string) error
}

// Notifier reaches a user on their messaging channel.
type Notifier interface {
	Direct(ctx context.Context, user *models.User, notice notify.Notice) error
}

// Service runs registrations from submission to provisioning.
type Service struct {
	users       Users
	admin       Admin
	mediaServer MediaServer
	notifier    Notifier

	serviceName    string
	mediaServerURL string
	password       func() (string, error)
}

// NewService creates a registration service. serviceName and
// mediaServerURL appear in the welcome message.
func NewService(users Users, admin Admin, mediaServer MediaServer, notifier Notifier, serviceName, mediaServerURL string) *Service {
	return &Service{
		users:          users,
		admin:          admin,
		mediaServer:    mediaServer,
		notifier:       notifier,
		serviceName:    serviceName,
		mediaServerURL: mediaServerURL,
		password:       generatePassword,
	}
}

// Subscribe handles admin decisions published on bus.
func (s *Service) Subscribe(bus *events.Bus) ([]events.Disposer, error) {
	d, err := events.Subscribe(bus, "registration", s.OnDecision)
	if err != nil {
		return nil, err
	}
	return []events.Disposer{d}, nil
}

// Register records a registration and posts it for review. Submitting
// the same email twice renames the user and posts a new review.
func (s *Service) Register(ctx context.Context, form Form) (*models.User, error) {
	user, err := s.users.Upsert(ctx, form.Username, models.MessagingEmail, form.Email)
	if err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}

	messageID, err := s.admin.NewRegistration(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetApprovalMessageID(ctx, user.ID, messageID); err != nil {
		return nil, fmt.Errorf("save approval message: %w", err)
	}
	user.ApprovalMessageID = messageID

	logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("user", user.Name).Msg("Registration awaiting review")
	return user, nil
}

// OnDecision applies an admin decision.
func (s *Service) OnDecision(ctx context.Context, e events.RegistrationDecided) error {
	logging.Ctx(ctx).Info().Str("user_id", e.UserID).Str("admin_id", e.AdminID).Bool("approved", e.Approved).Msg("Registration decided")
	if e.Approved {
		return s.Approve(ctx, e.UserID)
	}
	return s.Reject(ctx, e.UserID)
}

// Approve provisions the user's media-server account with a fresh
// password and sends it to them. An existing account gets its password
// reset. A name already taken on the media server is reported to the
// user and is not an error.
func (s *Service) Approve(ctx context.Context, userID string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	log := logging.Ctx(ctx).With().Str("user_id", user.ID).Str("user", user.Name).Logger()

	password, err := s.password()
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}

	if err := s.provision(ctx, user, password); err != nil {
		if errors.Is(err, jellyfin.ErrUserExists) {
			log.Warn().Msg("Media-server name already taken")
			return s.notifier.Direct(ctx, user, notify.Notice{Subject: subjectFailed, Text: MsgNameTaken})
		}
		log.Error().Err(err).Msg("Provisioning failed")
		return errors.Join(err, s.notifier.Direct(ctx, user, notify.Notice{Subject: subjectFailed, Text: MsgFailed}))
	}

	if err := s.users.SetApprovalMessageID(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("clear approval message: %w", err)
	}
	log.Info().Msg("Registration approved")
	return s.notifier.Direct(ctx, user, s.welcome(user, password))
}

func (s *Service) provision(ctx context.Context, user *models.User, password string) error {
	if user.Registered() {
		return s.mediaServer.ResetPassword(ctx, user.MediaServerID, password)
	}
	id, err := s.mediaServer.RegisterUser(ctx, user.Name, password)
	if err != nil {
		return err
	}
	if err := s.users.SetMediaServerID(ctx, user.ID, id); err != nil {
		return fmt.Errorf("save media-server id: %w", err)
	}
	user.MediaServerID = id
	return nil
}

// Reject tells the user their registration was declined.
func (s *Service) Reject(ctx context.Context, userID string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	if err := s.users.SetApprovalMessageID(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("clear approval message: %w", err)
	}
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("user", user.Name).Msg("Registration rejected")
	return s.notifier.Direct(ctx, user, notify.Notice{
		Subject: subjectDenied,
		Text:    "Votre demande d'inscription a été refusée par un administrateur.",
	})
}

func (s *Service) welcome(user *models.User, password string) notify.Notice {
	text := fmt.Sprintf("Votre compte est prêt.\nIdentifiant: %s\nMot de passe: %s", user.Name, password)
	if s.mediaServerURL != "" {
		text += "\nAdresse: " + s.mediaServerURL
	}
	return notify.Notice{Subject: fmt.Sprintf(subjectWelcome, s.serviceName), Text: text}
}

func generatePassword() (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, passwordLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}
