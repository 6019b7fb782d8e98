// Package metrics exposes Prometheus instrumentation for the monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts completed scheduler cycles.
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pbp_monitor_poll_cycles_total",
		Help: "Total number of completed polling cycles.",
	})

	// GamesPolled counts per-game sync attempts.
	GamesPolled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pbp_monitor_games_polled_total",
		Help: "Total number of per-game polls across all cycles.",
	})

	// SyncErrors counts per-game sync failures.
	SyncErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pbp_monitor_sync_errors_total",
		Help: "Total number of per-game sync failures.",
	})

	// ActiveGames tracks how many games are currently monitorable.
	ActiveGames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pbp_monitor_active_games",
		Help: "Number of games currently eligible for polling.",
	})

	// ActionsChanged counts reconciliation outcomes by kind
	// (created, updated, deleted, restored).
	ActionsChanged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pbp_monitor_actions_changed_total",
		Help: "Total reconciliation outcomes by kind.",
	}, []string{"kind"})

	// SignificantEdits counts changes that passed the edit classifier.
	SignificantEdits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pbp_monitor_significant_edits_total",
		Help: "Total number of significant edits flagged for review.",
	})

	// CycleDuration observes how long each polling cycle takes.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pbp_monitor_cycle_duration_seconds",
		Help:    "Duration of polling cycles.",
		Buckets: prometheus.DefBuckets,
	})
)
