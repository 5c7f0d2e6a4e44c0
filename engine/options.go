package engine

import (
	"github.com/willibrandon/otengine/monitoring"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMonitor attaches a monitoring.Monitor that Submit/commit report
// commit latency, fold/mirror counts and reachability misses to.
func WithMonitor(m *monitoring.Monitor) Option {
	return func(e *Engine) {
		e.monitor = m
	}
}

// WithCompactionHorizon limits CompactLog to the first n log entries:
// only entries at indices below n are examined and may be collapsed to
// the NoOwner placeholder. Zero (the default) or a negative n means
// CompactLog examines the whole log.
func WithCompactionHorizon(n int) Option {
	return func(e *Engine) {
		e.compactionHorizon = n
	}
}

// New returns an Engine with an empty document, configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
