package engine

import (
	"github.com/willibrandon/otengine/op"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/vector"
)

// Restore rebuilds an Engine from a previously persisted document
// state: the compacted buffer, the state vector it corresponds to, and
// the log entries committed to reach it, typically decoded from a
// snapshot.Backend. The caller is responsible for having verified the
// tuple's integrity before calling Restore; the engine does not
// re-derive the buffer from the log.
func Restore(buf segment.SegmentBuffer, vec vector.StateVector, entries []request.Request, opts ...Option) *Engine {
	e := New(opts...)
	e.buffer = buf
	e.vector = vec
	e.log.entries = append([]request.Request(nil), entries...)
	return e
}

// CompactLog rewrites every log entry whose effects are already fully
// subsumed by before (no target a future translate could be asked to
// reach still needs that entry's own operation) to an inert NoOwner
// NoOp placeholder. Entry indices and the log's length are
// left unchanged, since the association rule depends on stable
// positions; only the payload is discarded. It returns the number of
// entries rewritten. Scheduling when to call CompactLog is the
// caller's job; the engine only performs the rewrite when asked,
// bounded by WithCompactionHorizon if set.
func (e *Engine) CompactLog(before vector.StateVector) int {
	horizon := len(e.log.entries)
	if e.compactionHorizon > 0 && e.compactionHorizon < horizon {
		horizon = e.compactionHorizon
	}

	rewritten := 0
	for i := 0; i < horizon; i++ {
		entry := e.log.entries[i]
		if do, ok := entry.(request.Do); ok && do.UserID == vector.NoOwner {
			continue
		}

		reached := entry.Vector().Clone()
		reached.Add(entry.User(), 1)
		if !reached.CasuallyBefore(before) {
			continue
		}

		e.log.entries[i] = request.Do{
			UserID:    vector.NoOwner,
			Vec:       entry.Vector(),
			Operation: op.NoOp{},
		}
		rewritten++
	}
	return rewritten
}
