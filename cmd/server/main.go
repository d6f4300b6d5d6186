// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/tracktarr/internal/aggregator"
	"github.com/tomtom215/tracktarr/internal/api"
	"github.com/tomtom215/tracktarr/internal/cache"
	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/database"
	"github.com/tomtom215/tracktarr/internal/discord"
	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/jellyfin"
	"github.com/tomtom215/tracktarr/internal/ledger"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/notify"
	"github.com/tomtom215/tracktarr/internal/registration"
	"github.com/tomtom215/tracktarr/internal/supervisor"
	"github.com/tomtom215/tracktarr/internal/supervisor/services"
	"github.com/tomtom215/tracktarr/internal/sync"
	"github.com/tomtom215/tracktarr/internal/trakt"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Tracktarr stopped")
	}
}

//nolint:gocyclo // Sequential component wiring
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stdout,
	})
	logging.Info().Str("service", cfg.Service.Name).Msg("Starting Tracktarr with supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logging.Info().Msg("Database initialized successfully")

	bus := events.NewBus(events.BusConfig{})
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	cacher, err := cache.New(cache.Config{
		Backend: cache.Backend(cfg.Cache.Backend),
		Path:    cfg.Cache.Path,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := cacher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	traktClient := trakt.NewCachedClient(
		trakt.NewCircuitBreakerClient(trakt.NewClient(&cfg.Trakt)),
		cacher,
		&cfg.Cache,
	)

	jellyfinClient, err := jellyfin.NewClient(ctx, &cfg.Jellyfin)
	if err != nil {
		return err
	}
	mediaServer := jellyfin.NewCircuitBreakerClient(jellyfinClient)
	if err := mediaServer.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Jellyfin unreachable at startup (will retry each cycle)")
	}

	requests := ledger.New(db.Requests())
	agg := aggregator.New(traktClient, db.Cursors(), requests, &cfg.Sync)
	syncManager := sync.NewManager(db.Users(), mediaServer, agg, requests, &cfg.Sync)

	chat := discord.NewClient(&cfg.Discord)
	gateway := discord.NewGateway(&cfg.Discord, func(ctx context.Context, r discord.Reaction) {
		err := bus.Publish(ctx, events.ReactionAdded{
			MessageID: r.MessageID,
			ChannelID: r.ChannelID,
			GuildID:   r.GuildID,
			UserID:    r.UserID,
			Emoji:     r.Emoji,
			Bot:       r.Bot,
		})
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("message_id", r.MessageID).Msg("Failed to publish reaction")
		}
	})

	admin := notify.NewAdminController(chat, requests, db.Users(), bus, cfg.Discord.ChannelID, cfg.Discord.AdminIDs)

	// Without SMTP the notifier only reaches users over Discord.
	var (
		mailer  notify.Mailer
		batcher *notify.EmailBatcher
		queue   notify.EmailQueue
	)
	if cfg.Mail.Enabled() {
		smtpMailer := notify.NewSMTPMailer(&cfg.Mail)
		sender := notify.NewUpdateSender(smtpMailer, cfg.Service.Name, cfg.Service.MediaServerURL)
		batcher = notify.NewEmailBatcher(sender.Send, cfg.Mail.Debounce)
		mailer, queue = smtpMailer, batcher
	} else {
		logging.Info().Msg("Email delivery disabled (EMAIL_HOST not set)")
	}
	notifier := notify.NewUserNotifier(requests, db.Users(), chat, queue, mailer)

	registrations := registration.NewService(db.Users(), admin, mediaServer, notifier, cfg.Service.Name, cfg.Service.MediaServerURL)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	tree.AddDataService(database.NewListener(db.Pool(), bus))

	tree.AddMessagingService(services.NewSubscriptionService("admin-controller", bus, admin.Subscribe))
	tree.AddMessagingService(services.NewSubscriptionService("user-notifier", bus, notifier.Subscribe))
	tree.AddMessagingService(services.NewSubscriptionService("registrations", bus, registrations.Subscribe))
	tree.AddMessagingService(gateway)
	if batcher != nil {
		tree.AddMessagingService(batcher)
	}
	tree.AddMessagingService(services.NewSyncService(syncManager))

	router := api.NewRouter(&cfg.Server, registrations, map[string]api.Check{
		"database":     db.Ping,
		"media_server": mediaServer.Ping,
		"discord": func(context.Context) error {
			if !gateway.Connected() {
				return errors.New("gateway disconnected")
			}
			return nil
		},
	})
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Some services did not stop within the shutdown timeout")
	}
	logging.Info().Msg("Tracktarr stopped cleanly")
	return nil
}
