// Package metrics exposes the service's Prometheus collectors.
//
// Collectors register on the default registry at init through promauto, so
// callers only record; /metrics serves them via promhttp.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ledger metrics
	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Total number of ledger entries appended",
		},
		[]string{"ledger"}, // "lifetime", "daily_goal"
	)

	LedgerClampsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_clamps_total",
			Help: "Total number of removals reduced so a running sum stays at or above zero",
		},
		[]string{"ledger"},
	)

	// Archive metrics
	ArchiveSnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_snapshots_total",
			Help: "Total number of archive snapshot attempts per table",
		},
		[]string{"table", "result"}, // result: "ok", "error"
	)

	// Session metrics
	SessionAuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_auth_failures_total",
			Help: "Total number of rejected session or admin credentials",
		},
		[]string{"kind"}, // "session", "admin"
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordLedgerEntry counts one appended row and, when clamped, one clamp.
func RecordLedgerEntry(ledger string, clamped bool) {
	LedgerEntriesTotal.WithLabelValues(ledger).Inc()
	if clamped {
		LedgerClampsTotal.WithLabelValues(ledger).Inc()
	}
}

// RecordLedgerClamp counts a clamp that produced no row (shadow delta of zero).
func RecordLedgerClamp(ledger string) {
	LedgerClampsTotal.WithLabelValues(ledger).Inc()
}

func RecordArchiveSnapshot(table string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ArchiveSnapshotsTotal.WithLabelValues(table, result).Inc()
}

func RecordAuthFailure(kind string) {
	SessionAuthFailuresTotal.WithLabelValues(kind).Inc()
}

func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
