// Package metrics declares sessiondex's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IndexRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiondex",
		Subsystem: "index",
		Name:      "runs_total",
		Help:      "Total indexing runs, by outcome and path (worker or in-process).",
	}, []string{"outcome", "path"})

	IndexDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sessiondex",
		Subsystem: "index",
		Name:      "duration_seconds",
		Help:      "Duration of a complete incremental indexing run.",
		Buckets:   prometheus.DefBuckets,
	})

	IndexedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sessiondex",
		Subsystem: "index",
		Name:      "indexed_files",
		Help:      "Number of transcript files currently tracked in the index.",
	})

	IndexSkippedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiondex",
		Subsystem: "index",
		Name:      "skipped_files_total",
		Help:      "Total files skipped during indexing because their signature was unchanged.",
	}, []string{"provider"})

	IndexRemovedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiondex",
		Subsystem: "index",
		Name:      "removed_files_total",
		Help:      "Total indexed files removed because their source file disappeared.",
	}, []string{"provider"})

	QueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sessiondex",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Query service call duration, by channel.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"channel"})

	IpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiondex",
		Subsystem: "ipc",
		Name:      "requests_total",
		Help:      "Total IPC requests handled, by channel and outcome.",
	}, []string{"channel", "outcome"})

	BookmarksReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiondex",
		Subsystem: "bookmarks",
		Name:      "reconcile_total",
		Help:      "Total bookmark reconciliation outcomes, by action (orphaned, restored, deleted).",
	}, []string{"action"})

	WatchEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiondex",
		Subsystem: "watch",
		Name:      "events_total",
		Help:      "Total filesystem watch events observed, by provider; the \"coalesced\" series counts debounced refresh triggers.",
	}, []string{"provider"})
)

// Outcome labels shared across index run and IPC request counters.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Index run path labels.
const (
	PathWorker    = "worker"
	PathInProcess = "in_process"
)
