// Package engine ties together the state vector, segmented buffer and
// operation/request machinery into the single-threaded OT core: an
// append-only log, a pending request queue, the reachability predicate
// and the recursive translation kernel that lets a request authored
// against one historical state be committed against the current one.
package engine

import (
	"github.com/willibrandon/otengine/monitoring"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/snapshot"
	"github.com/willibrandon/otengine/vector"
)

// Engine owns one document's entire mutable state: the buffer, the
// current state vector, the committed log and the queue of requests
// that have arrived out of causal order. It is not safe for concurrent
// use; callers that need to hand requests over from other threads must
// serialise access themselves.
type Engine struct {
	buffer segment.SegmentBuffer
	vector vector.StateVector
	log    log
	queue  []request.Request

	monitor           *monitoring.Monitor
	compactionHorizon int

	snapStore        snapshot.Backend
	snapDocumentID   string
	snapEvery        int
	commitsSinceSnap int

	recursionDepth    int
	maxRecursionDepth int
}

// CurrentBuffer returns the document's current contents.
func (e *Engine) CurrentBuffer() segment.SegmentBuffer {
	return e.buffer
}

// CurrentVector returns a copy of the engine's current state vector.
func (e *Engine) CurrentVector() vector.StateVector {
	return e.vector.Clone()
}

// QueueLen returns the number of requests currently waiting for their
// causal prerequisites to commit. Exposed for monitoring.
func (e *Engine) QueueLen() int {
	return len(e.queue)
}

// LogLen returns the number of requests committed so far. Exposed for
// monitoring and snapshot bookkeeping.
func (e *Engine) LogLen() int {
	return len(e.log.entries)
}
