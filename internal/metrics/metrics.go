// Package metrics exposes the prometheus instruments for the ledger core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesTotal counts lifecycle transitions by resulting status and origin.
	EntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "entries_total",
			Help:      "Journal entry lifecycle transitions by resulting status and origin",
		},
		[]string{"status", "origin"},
	)
	// EvaluationsTotal counts rule engine evaluations by event type and outcome.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "engine_evaluations_total",
			Help:      "Rule engine evaluations by event type and outcome",
		},
		[]string{"event_type", "outcome"},
	)
	// SequenceNextSeconds observes how long correlative generation holds callers,
	// including time spent waiting on the series row lock.
	SequenceNextSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "sequence_next_seconds",
			Help:      "Correlative generation latency including series lock wait",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
