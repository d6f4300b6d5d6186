// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/tracktarr/internal/discord"
	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/ledger"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
)

// fakeChat records every chat operation as "op args".
type fakeChat struct {
	mu     sync.Mutex
	calls  []string
	sent   []discord.MessageSend
	edited []discord.MessageSend
	nextID int
	fail   map[string]error
}

func (c *fakeChat) record(op, format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op+" "+fmt.Sprintf(format, args...))
	return c.fail[op]
}

func (c *fakeChat) id() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return fmt.Sprintf("msg%d", c.nextID)
}

func (c *fakeChat) SendMessage(_ context.Context, channelID string, msg discord.MessageSend) (discord.Message, error) {
	if err := c.record("send", "%s", channelID); err != nil {
		return discord.Message{}, err
	}
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return discord.Message{ID: c.id(), ChannelID: channelID}, nil
}

func (c *fakeChat) SendThreadMessage(_ context.Context, threadID, content string) (discord.Message, error) {
	return discord.Message{ID: c.id()}, c.record("thread", "%s %s", threadID, content)
}

func (c *fakeChat) EditMessage(_ context.Context, channelID, messageID string, msg discord.MessageSend) (discord.Message, error) {
	c.mu.Lock()
	c.edited = append(c.edited, msg)
	c.mu.Unlock()
	return discord.Message{ID: messageID}, c.record("edit", "%s/%s", channelID, messageID)
}

func (c *fakeChat) StartThread(_ context.Context, channelID, messageID, name string) (discord.Channel, error) {
	// Threads started from a message share its id.
	return discord.Channel{ID: messageID, Name: name}, c.record("start-thread", "%s/%s %s", channelID, messageID, name)
}

func (c *fakeChat) AddReaction(_ context.Context, channelID, messageID, emoji string) error {
	return c.record("react", "%s/%s %s", channelID, messageID, emoji)
}

func (c *fakeChat) RemoveAllReactions(_ context.Context, channelID, messageID string) error {
	return c.record("unreact", "%s/%s", channelID, messageID)
}

func (c *fakeChat) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// fakeRequests applies the ledger's transition rules to in-memory requests.
type fakeRequests struct {
	mu       sync.Mutex
	requests map[string]*models.Request
	statuses []string
}

func newFakeRequests(reqs ...*models.Request) *fakeRequests {
	f := &fakeRequests{requests: make(map[string]*models.Request)}
	for _, r := range reqs {
		f.requests[r.ID()] = r
	}
	return f
}

func (f *fakeRequests) Get(_ context.Context, id string) (*models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrRequestNotFound, id)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequests) GetByThread(_ context.Context, threadID string) (*models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.ThreadID != "" && r.ThreadID == threadID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: thread %s", ledger.ErrRequestNotFound, threadID)
}

func (f *fakeRequests) AttachThread(_ context.Context, id, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return ledger.ErrRequestNotFound
	}
	r.ThreadID = threadID
	return nil
}

func (f *fakeRequests) SetStatus(_ context.Context, id string, status models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return ledger.ErrRequestNotFound
	}
	if r.Status == status {
		return nil
	}
	if !ledger.CanTransition(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, r.Status, status)
	}
	r.Status = status
	f.statuses = append(f.statuses, id+"="+string(status))
	return nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeUsers) GetByApprovalMessage(_ context.Context, messageID string) (*models.User, error) {
	for _, u := range f.users {
		if u.ApprovalMessageID != "" && u.ApprovalMessageID == messageID {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fakeDM struct {
	mu   sync.Mutex
	sent map[string][]discord.MessageSend
	err  error
}

func (d *fakeDM) SendDM(_ context.Context, userID string, msg discord.MessageSend) (discord.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return discord.Message{}, d.err
	}
	if d.sent == nil {
		d.sent = make(map[string][]discord.MessageSend)
	}
	d.sent[userID] = append(d.sent[userID], msg)
	return discord.Message{ID: "dm"}, nil
}

type queued struct {
	to string
	u  Update
}

type fakeQueue struct {
	mu    sync.Mutex
	items []queued
}

func (q *fakeQueue) Enqueue(to string, u Update) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, queued{to: to, u: u})
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
}

func (m *fakeMailer) Send(_ context.Context, msg Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// fakeClock runs timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs due timers synchronously.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

var (
	alice = &models.User{ID: "u-alice", Name: "alice", MessagingKey: models.MessagingDiscord, MessagingID: "discord-alice"}
	bob   = &models.User{ID: "u-bob", Name: "bob", MessagingKey: models.MessagingEmail, MessagingID: "bob@example.com"}
	carol = &models.User{ID: "u-carol", Name: "carol", MessagingKey: "whatsapp", MessagingID: "+33"}
)

func movieRequest(id string, status models.Status, users ...*models.User) *models.Request {
	req := &models.Request{
		MediaID: id,
		Status:  status,
		Media:   &models.Media{ID: id, Info: media.Movie("tt"+id, "Foo", 2020)},
	}
	for _, u := range users {
		req.Users = append(req.Users, models.RequestUser{RequestID: id, UserID: u.ID, Reasons: []models.Kind{models.KindWatchlisted}, User: u})
	}
	return req
}

func episodeRequest(id string, season, episode int) *models.Request {
	return &models.Request{
		MediaID: id,
		Status:  models.StatusPending,
		Media:   &models.Media{ID: id, Info: media.Episode("tt"+id, "Baz", 2019, season, episode)},
	}
}
