// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModelFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "model_fallback_total",
		Help:      "Requests whose model name was absent from the routing table and fell back to the default.",
	})

	RuleBlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "rule_blocked_total",
		Help:      "Requests blocked by the rule chain, by rule code.",
	}, []string{"code"})

	StreamOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "stream_outcome_total",
		Help:      "Finished response streams by outcome (completed, placeholder, error, cancelled).",
	}, []string{"outcome"})

	StreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chat",
		Name:      "stream_duration_seconds",
		Help:      "Wall time from pipeline start to stream end.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"kind"})
)
