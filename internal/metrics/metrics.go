// Package metrics exposes the Prometheus collectors for the payment core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectorCallDuration observes one connector network step, labeled by
	// connector name, flow and outcome ("success", "error", "failure").
	ConnectorCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_connector_call_duration_seconds",
			Help:    "Duration of connector network calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"connector", "flow", "outcome"},
	)

	// AccessTokenCacheHits counts cached-token reads that avoided a refresh.
	AccessTokenCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_access_token_cache_hits_total",
			Help: "Access token reads served from the cache.",
		},
		[]string{"connector"},
	)

	// AccessTokenCacheMisses counts token reads that triggered a refresh.
	AccessTokenCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_access_token_cache_misses_total",
			Help: "Access token reads that required a connector refresh.",
		},
		[]string{"connector"},
	)

	// SessionFanoutFailures counts per-connector failures discarded during a
	// session-token fan-out.
	SessionFanoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_session_fanout_failures_total",
			Help: "Connector failures swallowed during session-token fan-out.",
		},
		[]string{"connector"},
	)

	// OperationDuration observes one full pipeline run per operation kind.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_operation_duration_seconds",
			Help:    "Duration of payment operations end to end.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)
)
