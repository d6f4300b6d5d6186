// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync cycle metrics
	SyncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracktarr_sync_cycle_duration_seconds",
			Help:    "Duration of a full sync cycle (all users and the availability pass)",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	SyncCycleLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracktarr_sync_cycle_last_success_timestamp",
			Help: "Unix time of the last completed sync cycle",
		},
	)

	KindSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_kind_syncs_total",
			Help: "Per (user, kind) sync attempts",
		},
		[]string{"kind", "result"}, // result: "synced", "skipped", "failed"
	)

	WantedMedias = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracktarr_wanted_medias",
			Help: "Number of wanted medias produced by the last sync of a kind",
		},
		[]string{"kind"},
	)

	// Ledger metrics
	LedgerMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_ledger_mutations_total",
			Help: "Rows changed by the request ledger",
		},
		[]string{"operation"}, // "created", "joined", "left", "deleted", "reopened", "fulfilled", "status"
	)

	LedgerTransactionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_ledger_transaction_errors_total",
			Help: "Ledger transactions rolled back",
		},
		[]string{"operation"},
	)

	// External API metrics
	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracktarr_external_request_duration_seconds",
			Help:    "Duration of outbound API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)

	RateLimitWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_rate_limit_waits_total",
			Help: "Number of times an outbound call waited on a rate limit directive",
		},
		[]string{"service"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_cache_hits_total",
			Help: "Cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_cache_misses_total",
			Help: "Cache misses",
		},
		[]string{"cache"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_events_published_total",
			Help: "Events published on the in-process bus",
		},
		[]string{"kind"},
	)

	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_events_handled_total",
			Help: "Events delivered to subscribers",
		},
		[]string{"kind", "subscriber", "result"}, // result: "ok", "error", "decode_error"
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_store_notifications_dropped_total",
			Help: "Store notifications that failed to parse",
		},
		[]string{"channel"},
	)

	// Outbound messaging metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_messages_sent_total",
			Help: "Messages sent to users and admins",
		},
		[]string{"channel", "result"}, // channel: "discord", "email", "admin"
	)

	EmailBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracktarr_email_batch_size",
			Help:    "Number of request updates per email batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50},
		},
	)

	// HTTP surface
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracktarr_api_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordKindSync records the outcome of one (user, kind) sync.
func RecordKindSync(kind, result string, wanted int) {
	KindSyncs.WithLabelValues(kind, result).Inc()
	if result == "synced" {
		WantedMedias.WithLabelValues(kind).Set(float64(wanted))
	}
}

// RecordSyncCycle records a completed cycle.
func RecordSyncCycle(duration time.Duration) {
	SyncCycleDuration.Observe(duration.Seconds())
	SyncCycleLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordExternalRequest records an outbound API call.
func RecordExternalRequest(service, status string, duration time.Duration) {
	ExternalRequestDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

// RecordLedgerMutations adds n to the mutation counter for operation.
func RecordLedgerMutations(operation string, n int) {
	if n > 0 {
		LedgerMutations.WithLabelValues(operation).Add(float64(n))
	}
}

// RecordMessage records an outbound message.
func RecordMessage(channel string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	MessagesSent.WithLabelValues(channel, result).Inc()
}
