// Package monitoring provides Prometheus metrics and a lightweight
// in-process monitor for the engine: commits, translate recursion
// depth, the pending queue, and fold/mirror counts.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommitsTotal tracks committed requests by kind and outcome.
	CommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otengine_commits_total",
		Help: "Total number of requests committed, by request kind and status",
	}, []string{"kind", "status"})

	// TranslateDepth tracks the recursion depth of Translate calls.
	TranslateDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "otengine_translate_depth",
		Help:    "Recursion depth of a single Translate call",
		Buckets: prometheus.LinearBuckets(0, 2, 16),
	})

	// QueueLength tracks the number of requests waiting on their causal
	// prerequisites.
	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "otengine_queue_length",
		Help: "Number of requests in the pending (out-of-order) queue",
	})

	// ReachabilityMisses tracks how often translate was asked to reach
	// an unreachable target, always a programmer error in a healthy
	// engine.
	ReachabilityMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otengine_reachability_misses_total",
		Help: "Total number of translate calls given an unreachable target",
	})

	// FoldTotal tracks how many times translate skipped a matched
	// Undo/Redo pair via the fold shortcut instead of re-transforming
	// through it.
	FoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otengine_fold_total",
		Help: "Total number of undo/redo pairs skipped via fold",
	})

	// MirrorTotal tracks how many operations were mirrored to service
	// an Undo or Redo.
	MirrorTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otengine_mirror_total",
		Help: "Total number of operations mirrored for undo/redo",
	})

	// CommitLatency tracks the wall-clock duration of Engine.commit.
	CommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "otengine_commit_duration_seconds",
		Help:    "Commit latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
	})

	// SnapshotOperations tracks snapshot store operations by backend.
	SnapshotOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otengine_snapshot_operations_total",
		Help: "Total number of snapshot store operations",
	}, []string{"backend", "operation", "status"})

	// SnapshotLatency tracks the wall-clock duration of snapshot store
	// saves, by backend.
	SnapshotLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "otengine_snapshot_duration_seconds",
		Help:    "Snapshot save latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"backend"})
)

// RecordCommit records a committed (or rejected) request.
func RecordCommit(kind string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	CommitsTotal.WithLabelValues(kind, status).Inc()
}

// RecordTranslateDepth records the recursion depth reached by one
// Translate call.
func RecordTranslateDepth(depth int) {
	TranslateDepth.Observe(float64(depth))
}

// UpdateQueueLength sets the current pending queue length.
func UpdateQueueLength(n int) {
	QueueLength.Set(float64(n))
}

// RecordReachabilityMiss records an unreachable translate target.
func RecordReachabilityMiss() {
	ReachabilityMisses.Inc()
}

// RecordFold records a fold shortcut over a matched undo/redo pair.
func RecordFold() {
	FoldTotal.Inc()
}

// RecordMirror records a mirrored operation.
func RecordMirror() {
	MirrorTotal.Inc()
}

// RecordCommitLatency records the duration of one commit.
func RecordCommitLatency(d time.Duration) {
	CommitLatency.Observe(d.Seconds())
}

// RecordSnapshotLatency records the duration of one snapshot save.
func RecordSnapshotLatency(backend string, d time.Duration) {
	SnapshotLatency.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordSnapshotOperation records a snapshot backend operation.
func RecordSnapshotOperation(backend, operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	SnapshotOperations.WithLabelValues(backend, operation, status).Inc()
}
