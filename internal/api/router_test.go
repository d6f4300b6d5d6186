// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/models"
	"github.com/tomtom215/tracktarr/internal/registration"
)

type fakeRegistrar struct {
	mu    sync.Mutex
	forms []registration.Form
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, form registration.Form) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, form)
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: form.Email, Name: form.Username}, nil
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		CORSOrigins:        []string{"https://example.com"},
		RegistrationLimit:  100,
		RegistrationWindow: time.Minute,
	}
}

func newTestHandler(reg Registrar, checks map[string]Check) http.Handler {
	return NewRouter(testServerConfig(), reg, checks).Handler()
}

func postRegistration(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeRegistrar{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ready"`,
		},
		{
			name: "all healthy",
			checks: map[string]Check{
				"database": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantBody:   `"database":"ok"`,
		},
		{
			name: "one failing",
			checks: map[string]Check{
				"database":     func(context.Context) error { return nil },
				"media_server": func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"media_server":"connection refused"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(&fakeRegistrar{}, tt.checks)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeRegistrar{}, nil)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tracktarr_api_requests_total") {
		t.Error("metrics output missing tracktarr_api_requests_total")
	}
}

func TestRegister_Accepted(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistrar{}
	h := newTestHandler(reg, nil)

	rec := postRegistration(t, h, `{"email":"ada@example.com","username":"ada"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", rec.Code, rec.Body.String())
	}

	var resp RegistrationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "ada@example.com" || resp.Username != "ada" || resp.Status != "pending_approval" {
		t.Errorf("response = %+v", resp)
	}
	if len(reg.forms) != 1 {
		t.Fatalf("registrar called %d times, want 1", len(reg.forms))
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestRegister_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		regErr     error
		wantStatus int
		wantCode   string
	}{
		{"empty body", ``, nil, http.StatusBadRequest, "INVALID_JSON"},
		{"malformed json", `{"email":`, nil, http.StatusBadRequest, "INVALID_JSON"},
		{"invalid email", `{"email":"nope","username":"ada"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"short username", `{"email":"ada@example.com","username":"a"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"too large", `{"email":"` + strings.Repeat("a", maxRegistrationBody) + `"}`, nil, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"registrar failure", `{"email":"ada@example.com","username":"ada"}`, errors.New("discord down"), http.StatusInternalServerError, "REGISTRATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(&fakeRegistrar{err: tt.regErr}, nil)
			rec := postRegistration(t, h, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestRegister_ValidationFields(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistrar{}
	h := newTestHandler(reg, nil)
	rec := postRegistration(t, h, `{"email":"nope","username":""}`)

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp.Fields["email"]; !ok {
		t.Errorf("fields = %v, want an email entry", resp.Fields)
	}
	if _, ok := resp.Fields["username"]; !ok {
		t.Errorf("fields = %v, want a username entry", resp.Fields)
	}
	if len(reg.forms) != 0 {
		t.Error("registrar called for an invalid form")
	}
}

func TestRegister_RateLimited(t *testing.T) {
	t.Parallel()

	cfg := testServerConfig()
	cfg.RegistrationLimit = 2
	cfg.RegistrationWindow = time.Hour
	h := NewRouter(cfg, &fakeRegistrar{}, nil).Handler()

	body := `{"email":"ada@example.com","username":"ada"}`
	for i := 0; i < 2; i++ {
		if rec := postRegistration(t, h, body); rec.Code != http.StatusAccepted {
			t.Fatalf("request %d status = %d, want 202", i, rec.Code)
		}
	}
	if rec := postRegistration(t, h, body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", rec.Code)
	}
}

func TestRegister_CORSPreflight(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeRegistrar{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/registrations", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeRegistrar{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q, want abc-123", got)
	}
}
