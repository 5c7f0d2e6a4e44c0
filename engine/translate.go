package engine

import (
	"github.com/willibrandon/otengine/errs"
	"github.com/willibrandon/otengine/op"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/vector"
)

// translate rewrites req (whose own log position is reqIdx, or -1 if
// req is not yet a log entry) so its operation is expressed in the
// coordinate system of target. target must be reachable and causally
// at or after req's own vector. The result is always,
// ultimately, a request.Do: Undo/Redo resolve by mirroring their
// associated Do.
func (e *Engine) translate(req request.Request, reqIdx int, target vector.StateVector) (request.Do, error) {
	e.recursionDepth++
	if e.recursionDepth > e.maxRecursionDepth {
		e.maxRecursionDepth = e.recursionDepth
	}
	defer func() { e.recursionDepth-- }()

	if do, ok := req.(request.Do); ok && do.Vec.Equal(target) {
		return do, nil
	}

	if result, ok, err := e.translateUndoRedo(req, reqIdx, target); ok {
		if err == nil && e.monitor != nil {
			e.monitor.RecordMirror()
		}
		return result, err
	}

	for _, session := range e.vector.Sessions() {
		if session == req.User() {
			continue
		}
		if target.Get(session) <= req.Vector().Get(session) {
			continue
		}

		lastIdx, ok := e.log.requestByUser(session, target.Get(session)-1)
		if !ok {
			continue
		}
		lastReq := e.log.entries[lastIdx]

		if result, folded, err := e.tryFold(req, reqIdx, session, lastReq, lastIdx, target); folded {
			if err == nil && e.monitor != nil {
				e.monitor.RecordFold()
			}
			return result, err
		}

		transformAt := target.WithRemoved(session, 1)
		if !e.reachable(transformAt) {
			continue
		}
		lastAtTransformIdx, ok := e.log.requestByUser(session, transformAt.Get(session))
		if !ok {
			continue
		}

		r1, err := e.translate(req, reqIdx, transformAt)
		if err != nil {
			return request.Do{}, err
		}
		r2, err := e.translate(e.log.entries[lastAtTransformIdx], lastAtTransformIdx, transformAt)
		if err != nil {
			return request.Do{}, err
		}
		cid := op.TieBreak(req.User(), session)
		return r1.Transform(r2, &cid), nil
	}

	if e.monitor != nil {
		e.monitor.RecordReachabilityMiss()
	}
	return request.Do{}, errs.ErrUnreachableTarget
}

// translateUndoRedo handles an Undo or Redo req by locating its
// associate and mirroring the associate's translated form. ok is
// false when req is a Do (the caller should fall through to the
// general session loop) or when the mirror path could not be resolved
// (no associate, or the mirror point is unreachable); in that case
// the general loop is also tried.
func (e *Engine) translateUndoRedo(req request.Request, reqIdx int, target vector.StateVector) (request.Do, bool, error) {
	switch req.(type) {
	case request.Undo, request.Redo:
	default:
		return request.Do{}, false, nil
	}

	assocIdx, err := e.associateIndex(req, reqIdx)
	if err != nil {
		return request.Do{}, false, nil
	}
	assoc := e.log.entries[assocIdx]

	mirrorAt := target.With(req.User(), assoc.Vector().Get(req.User()))
	if !e.reachable(mirrorAt) {
		return request.Do{}, false, nil
	}

	translated, err := e.translate(assoc, assocIdx, mirrorAt)
	if err != nil {
		return request.Do{}, true, err
	}
	mirrorBy := target.Get(req.User()) - mirrorAt.Get(req.User())
	mirrored := translated.Mirror(mirrorBy).(request.Do)
	return mirrored, true, nil
}

// tryFold skips a matched Undo/Redo pair by folding rather than
// transforming through it: when the last request by session is itself
// an Undo/Redo, the fold point is reachable and req's own vector
// already precedes it, req's vector can jump the pair in one step.
func (e *Engine) tryFold(req request.Request, reqIdx int, session vector.SessionID, lastReq request.Request, lastIdx int, target vector.StateVector) (request.Do, bool, error) {
	switch lastReq.(type) {
	case request.Undo, request.Redo:
	default:
		return request.Do{}, false, nil
	}

	assocLastIdx, err := e.associateIndex(lastReq, lastIdx)
	if err != nil {
		return request.Do{}, false, nil
	}
	assocLast := e.log.entries[assocLastIdx]

	foldBy := target.Get(session) - assocLast.Vector().Get(session)
	if target.Get(session) <= foldBy {
		return request.Do{}, false, nil
	}

	foldAt := target.WithRemoved(session, foldBy)
	if !e.reachable(foldAt) || !req.Vector().CasuallyBefore(foldAt) {
		return request.Do{}, false, nil
	}

	translated, err := e.translate(req, reqIdx, foldAt)
	if err != nil {
		return request.Do{}, true, err
	}
	folded := translated.Fold(session, foldBy).(request.Do)
	return folded, true, nil
}
