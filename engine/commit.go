package engine

import (
	"time"

	"github.com/willibrandon/otengine/errs"
	"github.com/willibrandon/otengine/internal/logger"
	"github.com/willibrandon/otengine/monitoring"
	"github.com/willibrandon/otengine/request"
)

// kindOf names req's request kind for monitoring labels.
func kindOf(req request.Request) string {
	switch req.(type) {
	case request.Do:
		return "do"
	case request.Undo:
		return "undo"
	case request.Redo:
		return "redo"
	default:
		return "unknown"
	}
}

// Submit enqueues req and drains every request now eligible to commit,
// including any that were already waiting and become eligible as a
// side effect. It returns an error only for a request that cannot be
// committed at all (a malformed undo/redo, or one translate cannot
// bring to the current vector): such a request is
// dropped, and the rest of the queue is left for the next Submit call
// rather than risk committing out of the order the caller expects.
func (e *Engine) Submit(req request.Request) error {
	logger.Log.Debug("submit: user={User} kind={Kind} queueLen={QueueLen}",
		req.User(), kindOf(req), len(e.queue)+1)

	if !req.Vector().CasuallyBefore(e.vector) {
		logger.Log.Debug("submit: queuing request from user={User}: {Error}",
			req.User(), errs.ErrOutOfOrder)
	}
	e.queue = append(e.queue, req)
	err := e.drain()
	if e.monitor != nil {
		e.monitor.UpdateQueueLength(len(e.queue))
	}
	return err
}

func (e *Engine) drain() error {
	for {
		progressed, err := e.drainOnce()
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// drainOnce commits the first queued request whose vector causally
// precedes or equals the current one, if any, and reports whether it
// made progress.
func (e *Engine) drainOnce() (bool, error) {
	for i, req := range e.queue {
		if !req.Vector().CasuallyBefore(e.vector) {
			continue
		}
		e.queue = append(e.queue[:i:i], e.queue[i+1:]...)
		if err := e.commit(req); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// commit translates req to the current vector, makes its operation
// reversible against the live buffer if needed, applies it, advances
// the vector and appends the original (untranslated) request to the
// log.
func (e *Engine) commit(req request.Request) error {
	start := time.Now()
	kind := kindOf(req)

	if err := e.checkAssociation(req); err != nil {
		logger.Log.Warn("commit: dropping malformed {Kind} from user={User}: {Error}", kind, req.User(), err)
		e.recordRejected(kind)
		return err
	}

	e.maxRecursionDepth = 0
	translated, err := e.translate(req, -1, e.vector)
	monitoring.RecordTranslateDepth(e.maxRecursionDepth)
	if err != nil {
		logger.Log.Warn("commit: translate refused user={User} kind={Kind}: {Error}", req.User(), kind, err)
		e.recordRejected(kind)
		return err
	}

	translated = translated.MakeReversible(e.buffer)
	translated.Execute(&e.buffer, &e.vector)
	e.log.append(req)

	if e.monitor != nil {
		e.monitor.RecordCommit(kind, time.Since(start))
	}
	e.maybeSnapshot()
	return nil
}

func (e *Engine) recordRejected(kind string) {
	if e.monitor != nil {
		e.monitor.RecordRejected(kind)
	}
}

// checkAssociation surfaces ErrMalformedUndoRedo directly, before
// translate's recursive search, for a submitted Undo/Redo that has no
// valid partner at all: a clearer diagnostic than the generic
// unreachable-target failure a deep recursive scan would otherwise
// report.
func (e *Engine) checkAssociation(req request.Request) error {
	switch r := req.(type) {
	case request.Undo:
		if _, err := r.Associate(e.log.entries, -1); err != nil {
			return errs.ErrMalformedUndoRedo
		}
	case request.Redo:
		if _, err := r.Associate(e.log.entries, -1); err != nil {
			return errs.ErrMalformedUndoRedo
		}
	}
	return nil
}
