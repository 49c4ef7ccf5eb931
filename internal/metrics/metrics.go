// Package metrics exposes the router's prometheus instrumentation,
// following the same promauto-registered-globals pattern as the gateway's
// own metrics wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawrouter_routing_decisions_total",
			Help: "Total number of routing decisions, by tier and model",
		},
		[]string{"tier", "model"},
	)

	ClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clawrouter_classification_duration_seconds",
			Help:    "Time spent scoring and classifying a single prompt",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScoreCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawrouter_score_cache_hits_total",
			Help: "Score cache hits",
		},
	)

	ScoreCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawrouter_score_cache_misses_total",
			Help: "Score cache misses",
		},
	)

	JitterLockEngaged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawrouter_jitter_lock_engaged_total",
			Help: "Times the score cache pinned a tier to resist boundary oscillation",
		},
	)

	ModelHealthState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clawrouter_model_health_state",
			Help: "Current health state per model: 0=healthy 1=degraded 2=unhealthy 3=cooldown",
		},
		[]string{"model"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clawrouter_active_sessions",
			Help: "Number of sessions currently tracked by the session store",
		},
	)

	RoutingFeedbackRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawrouter_routing_feedback_total",
			Help: "Total routing feedback reports, by success",
		},
		[]string{"success"},
	)

	AdaptiveWeightAdjustments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawrouter_adaptive_weight_adjustments_total",
			Help: "Number of times the adaptive weight manager recomputed dimension factors",
		},
	)

	ScoreCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clawrouter_score_cache_entries",
			Help: "Number of entries currently held in the score cache",
		},
	)
)
