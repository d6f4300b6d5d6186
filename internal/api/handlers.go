// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/registration"
	"github.com/tomtom215/tracktarr/internal/validation"
)

const (
	maxRegistrationBody = 4 << 10
	readyCheckTimeout   = 5 * time.Second
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// RegistrationResponse acknowledges a registration awaiting review.
type RegistrationResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// ReadyResponse lists the result of each readiness check.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// Healthz reports that the process is up.
func (router *Router) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz runs every dependency check.
func (router *Router) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(router.checks))
	for name := range router.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := router.checks[name](ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("check", name).Msg("Readiness check failed")
			resp.Checks[name] = err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// Register accepts a registration form and posts it for admin review.
func (router *Router) Register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRegistrationBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Requête trop volumineuse")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Lecture de la requête impossible")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Corps de requête vide")
		return
	}

	var form registration.Form
	if err := json.Unmarshal(body, &form); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "JSON invalide")
		return
	}

	if verr := validation.ValidateStruct(&form); verr != nil {
		apiErr := verr.ToAPIError()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: apiErr.Code, Message: apiErr.Message, Fields: apiErr.Fields})
		return
	}

	user, err := router.registrar.Register(r.Context(), form)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("username", form.Username).Msg("Registration failed")
		writeError(w, http.StatusInternalServerError, "REGISTRATION_FAILED", registration.MsgFailed)
		return
	}

	writeJSON(w, http.StatusAccepted, RegistrationResponse{
		ID:       user.ID,
		Username: user.Name,
		Status:   "pending_approval",
	})
}
