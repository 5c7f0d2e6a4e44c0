package engine

import (
	"context"

	"github.com/willibrandon/otengine/internal/logger"
	"github.com/willibrandon/otengine/snapshot"
)

// WithSnapshotStore attaches a snapshot backend that the engine saves
// its (buffer, vector, log) triple to after every everyCommits
// commits. Saving never blocks or fails a commit: a backend error is
// logged and the commit stands, with the log retained for the next
// attempt. Wrap the backend in a snapshot.ResilientBackend to add
// retries and a circuit breaker on top.
func WithSnapshotStore(backend snapshot.Backend, documentID string, everyCommits int) Option {
	return func(e *Engine) {
		e.snapStore = backend
		e.snapDocumentID = documentID
		if everyCommits < 1 {
			everyCommits = 1
		}
		e.snapEvery = everyCommits
	}
}

// maybeSnapshot persists the engine's current state if a snapshot
// store is configured and enough commits have accumulated since the
// last save.
func (e *Engine) maybeSnapshot() {
	if e.snapStore == nil {
		return
	}
	e.commitsSinceSnap++
	if e.commitsSinceSnap < e.snapEvery {
		return
	}
	e.commitsSinceSnap = 0

	snap := snapshot.Build(e.snapDocumentID, e.vector, e.buffer.Segments(), e.log.entries)
	if err := e.snapStore.Save(context.Background(), snap); err != nil {
		logger.Log.Warn("snapshot: save to {Backend} failed, log retained: {Error}", e.snapStore.Name(), err)
	}
}
