// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package ledger

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
)

type joinKey struct{ requestID, userID string }

type memState struct {
	medias       map[string]models.Media
	mediaByKey   map[media.Key]string
	requests     map[string]models.Request
	requestUsers map[joinKey]models.RequestUser
	seq          int
	writes       int
}

func (s memState) clone() memState {
	return memState{
		medias:       maps.Clone(s.medias),
		mediaByKey:   maps.Clone(s.mediaByKey),
		requests:     maps.Clone(s.requests),
		requestUsers: maps.Clone(s.requestUsers),
		seq:          s.seq,
		writes:       s.writes,
	}
}

// memStore is an in-memory Store with commit/rollback semantics. Notified
// events are recorded only when a transaction commits.
type memStore struct {
	mu        sync.Mutex
	state     memState
	published []events.Event
	clock     time.Time

	// failOn makes the named Tx operation fail once it has been called
	// failAfter times.
	failOn    string
	failAfter int
	calls     map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			medias:       map[string]models.Media{},
			mediaByKey:   map[media.Key]string{},
			requests:     map[string]models.Request{},
			requestUsers: map[joinKey]models.RequestUser{},
		},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		calls: map[string]int{},
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) load(req models.Request, withUsers bool) models.Request {
	if m, ok := s.state.medias[req.MediaID]; ok {
		req.Media = &m
	}
	if withUsers {
		req.Users = nil
		for k, ru := range s.state.requestUsers {
			if k.requestID == req.MediaID {
				req.Users = append(req.Users, ru)
			}
		}
		slices.SortFunc(req.Users, func(a, b models.RequestUser) int {
			if a.UserID < b.UserID {
				return -1
			}
			if a.UserID > b.UserID {
				return 1
			}
			return 0
		})
	}
	return req
}

func (s *memStore) ListByUserAndKind(_ context.Context, userID string, kind models.Kind) ([]models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Request
	for k, ru := range s.state.requestUsers {
		if k.userID == userID && ru.HasReason(kind) {
			out = append(out, s.load(s.state.requests[k.requestID], false))
		}
	}
	return out, nil
}

func (s *memStore) ListByStatus(_ context.Context, statuses ...models.Status) ([]models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Request
	for _, req := range s.state.requests {
		if slices.Contains(statuses, req.Status) {
			out = append(out, s.load(req, false))
		}
	}
	return out, nil
}

func (s *memStore) GetRequest(_ context.Context, id string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.state.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	req = s.load(req, true)
	return &req, nil
}

func (s *memStore) GetRequestByThread(_ context.Context, threadID string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.state.requests {
		if req.ThreadID == threadID {
			req = s.load(req, true)
			return &req, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memStore) AttachThread(_ context.Context, requestID, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.state.requests[requestID]
	if !ok {
		return models.ErrNotFound
	}
	req.ThreadID = threadID
	s.state.requests[requestID] = req
	return nil
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{store: s, state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	s.published = append(s.published, tx.pending...)
	return nil
}

// snapshot returns the row counts and write counter.
func (s *memStore) snapshot() (requests, users, writes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.requests), len(s.state.requestUsers), s.state.writes
}

func (s *memStore) events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.published...)
}

func (s *memStore) request(t interface{ Fatalf(string, ...any) }, externalID string) models.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.state.requests {
		if m := s.state.medias[req.MediaID]; m.ExternalID == externalID {
			return s.load(req, true)
		}
	}
	t.Fatalf("no request for %s", externalID)
	return models.Request{}
}

func (s *memStore) hasRequest(externalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.state.requests {
		if s.state.medias[req.MediaID].ExternalID == externalID {
			return true
		}
	}
	return false
}

type memTx struct {
	store   *memStore
	state   memState
	pending []events.Event
}

var errInjected = errors.New("injected failure")

func (tx *memTx) check(op string) error {
	s := tx.store
	s.calls[op]++
	if s.failOn == op && s.calls[op] > s.failAfter {
		return errInjected
	}
	return nil
}

func (tx *memTx) UpsertMedia(_ context.Context, info media.Info) (*models.Media, error) {
	if err := tx.check("UpsertMedia"); err != nil {
		return nil, err
	}
	key := media.Identify(info)
	if id, ok := tx.state.mediaByKey[key]; ok {
		m := tx.state.medias[id]
		if m.Title != info.Title || m.Year != info.Year {
			m.Title, m.Year = info.Title, info.Year
			m.UpdatedAt = tx.store.tick()
			tx.state.medias[id] = m
			tx.state.writes++
		}
		return &m, nil
	}
	tx.state.seq++
	now := tx.store.tick()
	m := models.Media{ID: fmt.Sprintf("m%d", tx.state.seq), Info: info, CreatedAt: now, UpdatedAt: now}
	tx.state.medias[m.ID] = m
	tx.state.mediaByKey[key] = m.ID
	tx.state.writes++
	return &m, nil
}

func (tx *memTx) GetRequest(_ context.Context, id string) (*models.Request, error) {
	if err := tx.check("GetRequest"); err != nil {
		return nil, err
	}
	req, ok := tx.state.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &req, nil
}

func (tx *memTx) InsertRequest(_ context.Context, mediaID string, status models.Status) (*models.Request, bool, error) {
	if err := tx.check("InsertRequest"); err != nil {
		return nil, false, err
	}
	if req, ok := tx.state.requests[mediaID]; ok {
		return &req, false, nil
	}
	now := tx.store.tick()
	req := models.Request{MediaID: mediaID, Status: status, CreatedAt: now, UpdatedAt: now}
	tx.state.requests[mediaID] = req
	tx.state.writes++
	return &req, true, nil
}

func (tx *memTx) UpdateStatus(_ context.Context, id string, status models.Status) error {
	if err := tx.check("UpdateStatus"); err != nil {
		return err
	}
	req, ok := tx.state.requests[id]
	if !ok {
		return models.ErrNotFound
	}
	req.Status = status
	req.UpdatedAt = tx.store.tick()
	tx.state.requests[id] = req
	tx.state.writes++
	return nil
}

func (tx *memTx) DeleteRequest(_ context.Context, id string) error {
	if err := tx.check("DeleteRequest"); err != nil {
		return err
	}
	delete(tx.state.requests, id)
	tx.state.writes++
	return nil
}

func (tx *memTx) GetRequestUser(_ context.Context, requestID, userID string) (*models.RequestUser, error) {
	if err := tx.check("GetRequestUser"); err != nil {
		return nil, err
	}
	ru, ok := tx.state.requestUsers[joinKey{requestID, userID}]
	if !ok {
		return nil, nil
	}
	return &ru, nil
}

func (tx *memTx) UpsertRequestUser(_ context.Context, requestID, userID string, reasons []models.Kind) error {
	if err := tx.check("UpsertRequestUser"); err != nil {
		return err
	}
	k := joinKey{requestID, userID}
	now := tx.store.tick()
	ru, ok := tx.state.requestUsers[k]
	if !ok {
		ru = models.RequestUser{RequestID: requestID, UserID: userID, CreatedAt: now}
	}
	ru.Reasons = slices.Clone(reasons)
	ru.UpdatedAt = now
	tx.state.requestUsers[k] = ru
	tx.state.writes++
	return nil
}

func (tx *memTx) DeleteRequestUser(_ context.Context, requestID, userID string) error {
	if err := tx.check("DeleteRequestUser"); err != nil {
		return err
	}
	delete(tx.state.requestUsers, joinKey{requestID, userID})
	tx.state.writes++
	return nil
}

func (tx *memTx) CountRequestUsers(_ context.Context, requestID string) (int, error) {
	n := 0
	for k := range tx.state.requestUsers {
		if k.requestID == requestID {
			n++
		}
	}
	return n, nil
}

func (tx *memTx) Notify(_ context.Context, e events.Event) error {
	if _, err := events.Encode(e); err != nil {
		return err
	}
	tx.pending = append(tx.pending, e)
	return nil
}
