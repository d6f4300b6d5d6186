// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/models"
	"github.com/tomtom215/tracktarr/internal/registration"
)

// Registrar records registrations.
type Registrar interface {
	Register(ctx context.Context, form registration.Form) (*models.User, error)
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Router holds the handlers' dependencies.
type Router struct {
	cfg       *config.ServerConfig
	registrar Registrar
	checks    map[string]Check
}

// NewRouter creates a router. checks are run by /readyz, keyed by the
// name reported on failure.
func NewRouter(cfg *config.ServerConfig, registrar Registrar, checks map[string]Check) *Router {
	return &Router{cfg: cfg, registrar: registrar, checks: checks}
}

// Handler returns the routed http.Handler.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetrics())

	r.Get("/healthz", router.Healthz)
	r.Get("/readyz", router.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: router.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         86400,
		}))
		r.Use(APISecurityHeaders())

		r.With(httprate.LimitByIP(router.cfg.RegistrationLimit, router.cfg.RegistrationWindow)).
			Post("/registrations", router.Register)
	})

	return r
}
