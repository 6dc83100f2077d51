// Package metrics declares the Prometheus collectors shared by the interview
// core. Collectors register on the default registry and are served by the
// gateway's /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interviewcoach"

var (
	// TurnsTotal counts completed answer turns by the action taken.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Answer turns processed, by chosen action",
	}, []string{"action"})

	FallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallbacks_total",
		Help:      "Responses served from deterministic fallbacks, by operation",
	}, []string{"operation"})

	AgentCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "agent_call_duration_seconds",
		Help:      "Agent call latency by operation and outcome",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"operation", "outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently held in memory",
	})

	EvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "memory_evictions_total",
		Help:      "Sliding-window eviction rounds across all sessions",
	})

	ExpiredSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "memory_expired_sessions_total",
		Help:      "Sessions removed by the expiry sweep",
	})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_messages_total",
		Help:      "Inbound chat messages rejected by the per-sender limiter",
	}, []string{"channel"})
)

// ObserveAgentCall records the latency of one agent call started at start.
func ObserveAgentCall(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AgentCallDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
