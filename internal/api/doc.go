// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package api serves the Tracktarr HTTP surface with the Chi router.

Routes:

	GET  /healthz               liveness, always 200 while the process runs
	GET  /readyz                readiness, 503 when a dependency check fails
	GET  /metrics               Prometheus metrics
	POST /api/v1/registrations  registration form {email, username}

Every request gets an X-Request-ID, a correlation id in its logging
context, panic recovery and a per-route request counter. The registration
endpoint is additionally protected by CORS (go-chi/cors), a per-IP rate
limit (go-chi/httprate) and payload validation (go-playground/validator).
*/
package api
