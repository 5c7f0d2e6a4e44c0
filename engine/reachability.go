package engine

import (
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/vector"
)

// reachable reports whether target is attainable by applying some
// prefix of the log to the engine's own starting state: every
// session's view, walked backward from target, must eventually bottom
// out at that session's baseline.
func (e *Engine) reachable(target vector.StateVector) bool {
	for _, session := range e.vector.Sessions() {
		if !e.reachableUser(target, session) {
			return false
		}
	}
	return true
}

func (e *Engine) reachableUser(target vector.StateVector, user vector.SessionID) bool {
	n := int64(target.Get(user))

	baseline := int64(e.vector.Get(user))
	if idx, ok := e.log.firstRequestByUser(user); ok {
		baseline = int64(e.log.entries[idx].Vector().Get(user))
	}

	for {
		if n == baseline {
			return true
		}
		if n <= 0 {
			return false
		}
		idx, ok := e.log.requestByUser(user, uint64(n-1))
		if !ok {
			return false
		}
		switch r := e.log.entries[idx].(type) {
		case request.Do:
			w := r.Vec.Clone()
			w.Add(r.UserID, 1)
			return w.CasuallyBefore(target)
		case request.Undo, request.Redo:
			assocIdx, err := e.associateIndex(r, idx)
			if err != nil {
				return false
			}
			n = int64(e.log.entries[assocIdx].Vector().Get(user))
		default:
			return false
		}
	}
}

// associateIndex resolves the association rule for an Undo or Redo
// log entry at position idx, returning the index of its partner.
func (e *Engine) associateIndex(r request.Request, idx int) (int, error) {
	switch v := r.(type) {
	case request.Undo:
		return v.Associate(e.log.entries, idx)
	case request.Redo:
		return v.Associate(e.log.entries, idx)
	default:
		panic("engine: associateIndex called on a non-undo/redo request")
	}
}
