// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/tracktarr/internal/aggregator"
	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/jellyfin"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/metrics"
	"github.com/tomtom215/tracktarr/internal/models"
)

// ErrSyncInProgress is returned by RunOnce while a cycle is running.
var ErrSyncInProgress = errors.New("sync already in progress")

// UserStore lists the known users.
type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
}

// MediaServer exposes the accounts linked to the watch tracker and the
// library content.
type MediaServer interface {
	UsersAuthContext(ctx context.Context) ([]jellyfin.AuthContext, error)
	ListLibraryItems(ctx context.Context) ([]media.Info, error)
}

// UserSyncer syncs the desired state of one user.
type UserSyncer interface {
	SyncUser(ctx context.Context, user models.AuthenticatedUser) aggregator.Result
}

// Library fulfills tracked requests found in the library.
type Library interface {
	SyncCollected(ctx context.Context, items []media.Info) (int, error)
}

// Report summarizes one cycle.
type Report struct {
	Users       int
	FailedUsers int
	Fulfilled   int
	LibraryErr  error
	Duration    time.Duration
}

// Manager runs sync cycles periodically.
type Manager struct {
	users       UserStore
	mediaServer MediaServer
	syncer      UserSyncer
	library     Library
	interval    time.Duration
	concurrency int

	mu       sync.RWMutex
	running  bool
	lastSync time.Time
	stopChan chan struct{}
	wg       sync.WaitGroup

	syncMu sync.Mutex
}

// NewManager creates a sync manager.
func NewManager(users UserStore, mediaServer MediaServer, syncer UserSyncer, library Library, cfg *config.SyncConfig) *Manager {
	concurrency := cfg.UserConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	logging.Info().
		Dur("interval", cfg.Interval).
		Int("user_concurrency", concurrency).
		Msg("Sync manager config loaded")

	return &Manager{
		users:       users,
		mediaServer: mediaServer,
		syncer:      syncer,
		library:     library,
		interval:    cfg.Interval,
		concurrency: concurrency,
	}
}

// Start runs a first cycle in the background and then one cycle per
// interval until ctx is canceled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.stopChan = make(chan struct{})

	logging.Info().Msg("Starting sync manager...")
	m.wg.Add(1)
	go m.loop(ctx, m.stopChan)
	return nil
}

// Stop ends the loop and waits for the running cycle to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// LastSyncTime returns when the last cycle completed.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

func (m *Manager) loop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()

	// The timer is re-armed after each cycle so a slow cycle delays the
	// next one instead of overlapping with it.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-timer.C:
			if _, err := m.RunOnce(ctx); err != nil {
				logging.Error().Err(err).Msg("Sync failed")
			}
			timer.Reset(m.interval)
		}
	}
}

// RunOnce runs a full cycle: targeted sync of every discovered user, then
// the library pass. Per-user and library failures are logged and
// reported, not returned; an error means the cycle could not start.
func (m *Manager) RunOnce(ctx context.Context) (Report, error) {
	if !m.syncMu.TryLock() {
		return Report{}, ErrSyncInProgress
	}
	defer m.syncMu.Unlock()

	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)
	start := time.Now()
	log.Info().Msg("Starting synchronization")

	users, err := m.discoverUsers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("discover users: %w", err)
	}

	report := Report{Users: len(users)}
	report.FailedUsers = m.syncUsers(ctx, users)

	report.Fulfilled, report.LibraryErr = m.syncLibrary(ctx)
	if report.LibraryErr != nil {
		log.Error().Err(report.LibraryErr).Msg("Library pass failed")
	}

	report.Duration = time.Since(start)
	m.mu.Lock()
	m.lastSync = time.Now()
	m.mu.Unlock()
	metrics.RecordSyncCycle(report.Duration)

	log.Info().
		Int("users", report.Users).
		Int("failed_users", report.FailedUsers).
		Int("fulfilled", report.Fulfilled).
		Dur("duration", report.Duration).
		Msg("Synchronization completed")
	return report, nil
}

// discoverUsers returns the stored users that have a watch-tracker token
// on the media server. Accounts without a stored user are skipped.
func (m *Manager) discoverUsers(ctx context.Context) ([]models.AuthenticatedUser, error) {
	contexts, err := m.mediaServer.UsersAuthContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list media-server auth contexts: %w", err)
	}
	users, err := m.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	byMediaServerID := make(map[string]models.User, len(users))
	for _, u := range users {
		if u.Registered() {
			byMediaServerID[u.MediaServerID] = u
		}
	}

	out := make([]models.AuthenticatedUser, 0, len(contexts))
	for _, ac := range contexts {
		u, ok := byMediaServerID[ac.MediaServerID]
		if !ok {
			logging.Ctx(ctx).Debug().Str("media_server_id", ac.MediaServerID).Msg("Linked account has no user, skipping")
			continue
		}
		out = append(out, models.AuthenticatedUser{User: u, AccessToken: ac.AccessToken})
	}
	return out, nil
}

// syncUsers runs the aggregator for every user and returns how many
// failed.
func (m *Manager) syncUsers(ctx context.Context, users []models.AuthenticatedUser) int {
	var (
		mu     sync.Mutex
		failed int
	)
	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for _, user := range users {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if m.syncer.SyncUser(ctx, user).Failed() {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

func (m *Manager) syncLibrary(ctx context.Context) (int, error) {
	items, err := m.mediaServer.ListLibraryItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("list library: %w", err)
	}
	logging.Ctx(ctx).Info().Int("items", len(items)).Msg("Collecting library")
	return m.library.SyncCollected(ctx, items)
}
