// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package registration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/tracktarr/internal/events"
	"github.com/tomtom215/tracktarr/internal/jellyfin"
	"github.com/tomtom215/tracktarr/internal/models"
	"github.com/tomtom215/tracktarr/internal/notify"
	"github.com/tomtom215/tracktarr/internal/validation"
)

type fakeUsers struct {
	byID map[string]*models.User
	err  error
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*models.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Upsert(_ context.Context, name, key, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.MessagingKey == key && u.MessagingID == id {
			u.Name = name
			cp := *u
			return &cp, nil
		}
	}
	u := &models.User{ID: "u" + string(rune('0'+len(f.byID)+1)), Name: name, MessagingKey: key, MessagingID: id}
	f.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetMediaServerID(_ context.Context, id, mediaServerID string) error {
	f.byID[id].MediaServerID = mediaServerID
	return nil
}

func (f *fakeUsers) SetApprovalMessageID(_ context.Context, id, messageID string) error {
	f.byID[id].ApprovalMessageID = messageID
	return nil
}

type fakeAdmin struct {
	posted []string
	err    error
}

func (f *fakeAdmin) NewRegistration(_ context.Context, user *models.User) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.posted = append(f.posted, user.Name)
	return "msg-" + user.Name, nil
}

type fakeMediaServer struct {
	registered []string
	resets     []string
	err        error
}

func (f *fakeMediaServer) RegisterUser(_ context.Context, name, password string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.registered = append(f.registered, name+":"+password)
	return "jf-" + name, nil
}

func (f *fakeMediaServer) ResetPassword(_ context.Context, userID, password string) error {
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, userID+":"+password)
	return nil
}

type fakeNotifier struct {
	sent []notify.Notice
	to   []string
}

func (f *fakeNotifier) Direct(_ context.Context, user *models.User, notice notify.Notice) error {
	f.to = append(f.to, user.MessagingID)
	f.sent = append(f.sent, notice)
	return nil
}

type fixture struct {
	users    *fakeUsers
	admin    *fakeAdmin
	server   *fakeMediaServer
	notifier *fakeNotifier
	svc      *Service
}

func newFixture(users ...*models.User) *fixture {
	f := &fixture{
		users:    newFakeUsers(users...),
		admin:    &fakeAdmin{},
		server:   &fakeMediaServer{},
		notifier: &fakeNotifier{},
	}
	f.svc = NewService(f.users, f.admin, f.server, f.notifier, "Tracktarr", "https://media.example.com")
	f.svc.password = func() (string, error) { return "s3cret", nil }
	return f
}

func pendingUser() *models.User {
	return &models.User{ID: "u1", Name: "bob", MessagingKey: models.MessagingEmail, MessagingID: "bob@example.com", ApprovalMessageID: "msg-bob"}
}

func TestRegister(t *testing.T) {
	t.Parallel()
	f := newFixture()

	user, err := f.svc.Register(context.Background(), Form{Email: "bob@example.com", Username: "bob"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.MessagingKey != models.MessagingEmail || user.MessagingID != "bob@example.com" {
		t.Errorf("user = %+v", user)
	}
	if user.ApprovalMessageID != "msg-bob" {
		t.Errorf("ApprovalMessageID = %q", user.ApprovalMessageID)
	}
	if got := f.users.byID[user.ID].ApprovalMessageID; got != "msg-bob" {
		t.Errorf("stored ApprovalMessageID = %q", got)
	}
	if len(f.admin.posted) != 1 {
		t.Errorf("admin posts = %v", f.admin.posted)
	}
}

func TestRegisterSameEmailRenames(t *testing.T) {
	t.Parallel()
	f := newFixture(pendingUser())

	user, err := f.svc.Register(context.Background(), Form{Email: "bob@example.com", Username: "robert"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID != "u1" || user.Name != "robert" {
		t.Errorf("user = %+v, want u1 renamed robert", user)
	}
	if len(f.users.byID) != 1 {
		t.Errorf("users = %d, want 1", len(f.users.byID))
	}
}

func TestRegisterAdminFailure(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.admin.err = errors.New("discord down")

	if _, err := f.svc.Register(context.Background(), Form{Email: "bob@example.com", Username: "bob"}); err == nil {
		t.Fatal("Register() error = nil, want admin failure")
	}
}

func TestFormValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		form  Form
		valid bool
	}{
		{"valid", Form{Email: "bob@example.com", Username: "bob"}, true},
		{"bad email", Form{Email: "bob", Username: "bob"}, false},
		{"short username", Form{Email: "bob@example.com", Username: "bo"}, false},
		{"missing", Form{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validation.ValidateStruct(&tt.form)
			if (err == nil) != tt.valid {
				t.Errorf("ValidateStruct() = %v, valid %v", err, tt.valid)
			}
		})
	}
}

func TestApproveRegistersNewAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(pendingUser())

	if err := f.svc.Approve(context.Background(), "u1"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(f.server.registered) != 1 || f.server.registered[0] != "bob:s3cret" {
		t.Errorf("registered = %v", f.server.registered)
	}
	stored := f.users.byID["u1"]
	if stored.MediaServerID != "jf-bob" {
		t.Errorf("MediaServerID = %q", stored.MediaServerID)
	}
	if stored.ApprovalMessageID != "" {
		t.Errorf("ApprovalMessageID = %q, want cleared", stored.ApprovalMessageID)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("notices = %d, want 1", len(f.notifier.sent))
	}
	notice := f.notifier.sent[0]
	if notice.Subject != "Bienvenue sur Tracktarr" {
		t.Errorf("Subject = %q", notice.Subject)
	}
	for _, want := range []string{"bob", "s3cret", "https://media.example.com"} {
		if !strings.Contains(notice.Text, want) {
			t.Errorf("Text %q missing %q", notice.Text, want)
		}
	}
}

func TestApproveResetsExistingAccount(t *testing.T) {
	t.Parallel()
	user := pendingUser()
	user.MediaServerID = "jf-42"
	f := newFixture(user)

	if err := f.svc.Approve(context.Background(), "u1"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(f.server.registered) != 0 {
		t.Errorf("registered = %v, want none", f.server.registered)
	}
	if len(f.server.resets) != 1 || f.server.resets[0] != "jf-42:s3cret" {
		t.Errorf("resets = %v", f.server.resets)
	}
}

func TestApproveNameTaken(t *testing.T) {
	t.Parallel()
	f := newFixture(pendingUser())
	f.server.err = jellyfin.ErrUserExists

	if err := f.svc.Approve(context.Background(), "u1"); err != nil {
		t.Fatalf("Approve() error = %v, want nil for a name collision", err)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].Text != MsgNameTaken {
		t.Errorf("notices = %+v", f.notifier.sent)
	}
	if f.users.byID["u1"].MediaServerID != "" {
		t.Error("MediaServerID set despite the collision")
	}
}

func TestApproveProvisioningFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(pendingUser())
	f.server.err = errors.New("connection refused")

	if err := f.svc.Approve(context.Background(), "u1"); err == nil {
		t.Fatal("Approve() error = nil, want provisioning failure")
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].Text != MsgFailed {
		t.Errorf("notices = %+v", f.notifier.sent)
	}
}

func TestApproveUnknownUser(t *testing.T) {
	t.Parallel()
	f := newFixture()

	err := f.svc.Approve(context.Background(), "ghost")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Approve() error = %v, want ErrNotFound", err)
	}
}

func TestOnDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		approved bool
		wantReg  int
		subject  string
	}{
		{"approved", true, 1, "Bienvenue sur Tracktarr"},
		{"rejected", false, 0, "Inscription refusée"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(pendingUser())

			err := f.svc.OnDecision(context.Background(), events.RegistrationDecided{UserID: "u1", Approved: tt.approved, AdminID: "admin"})
			if err != nil {
				t.Fatalf("OnDecision() error = %v", err)
			}
			if len(f.server.registered) != tt.wantReg {
				t.Errorf("registered = %v", f.server.registered)
			}
			if len(f.notifier.sent) != 1 || f.notifier.sent[0].Subject != tt.subject {
				t.Errorf("notices = %+v", f.notifier.sent)
			}
			if f.notifier.to[0] != "bob@example.com" {
				t.Errorf("notified %q", f.notifier.to[0])
			}
			if f.users.byID["u1"].ApprovalMessageID != "" {
				t.Error("ApprovalMessageID not cleared")
			}
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	a, err := generatePassword()
	if err != nil {
		t.Fatalf("generatePassword() error = %v", err)
	}
	b, _ := generatePassword()
	if len(a) != passwordLength {
		t.Errorf("len = %d, want %d", len(a), passwordLength)
	}
	if a == b {
		t.Error("two passwords are equal")
	}
	for _, r := range a {
		if !strings.ContainsRune(passwordAlphabet, r) {
			t.Errorf("unexpected rune %q", r)
		}
	}
}
