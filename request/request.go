// Package request implements the user-facing operation wrappers that
// carry an issuing session and the state vector it was authored
// against: Do, Undo and Redo. It also implements the association rule
// that links an Undo to the Do (or Redo) it targets, and a Redo to the
// Undo it targets.
package request

import (
	"github.com/willibrandon/otengine/errs"
	"github.com/willibrandon/otengine/op"
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/vector"
)

// Request is the tagged union of Do, Undo and Redo. vector.field[user]
// always equals the issuing session's own counter at authoring time.
type Request interface {
	User() vector.SessionID
	Vector() vector.StateVector
	// Fold advances this request's recorded vector for session by
	// amount without re-transforming its operation, skipping a
	// matched Undo/Redo pair that translate has already accounted
	// for.
	Fold(session vector.SessionID, amount uint64) Request

	isRequest()
}

// Do carries an Operation to be committed against the buffer.
type Do struct {
	UserID    vector.SessionID
	Vec       vector.StateVector
	Operation op.Operation
}

func (d Do) isRequest() {}

// User returns the issuing session.
func (d Do) User() vector.SessionID { return d.UserID }

// Vector returns the state vector this request was authored against.
func (d Do) Vector() vector.StateVector { return d.Vec }

// Fold returns a copy of d with session's counter advanced by amount
// in its recorded vector.
func (d Do) Fold(session vector.SessionID, amount uint64) Request {
	nv := d.Vec.Clone()
	nv.Add(session, amount)
	return Do{UserID: d.UserID, Vec: nv, Operation: d.Operation}
}

// Execute applies the operation to buf and bumps v[UserID] by one.
func (d Do) Execute(buf *segment.SegmentBuffer, v *vector.StateVector) {
	d.Operation.Apply(buf)
	v.Add(d.UserID, 1)
}

// Transform rewrites d so it can be applied after other has committed:
// the operation is transformed against other's operation, and the
// recorded vector is advanced past other's author. A nil cid is
// replaced by op.TieBreak(d.UserID, other.UserID).
func (d Do) Transform(other Do, cid *op.ConcurrentOrder) Do {
	if cid == nil {
		c := op.TieBreak(d.UserID, other.UserID)
		cid = &c
	}
	nv := d.Vec.Clone()
	nv.Add(other.UserID, 1)
	return Do{
		UserID:    d.UserID,
		Vec:       nv,
		Operation: d.Operation.Transform(other.Operation, cid),
	}
}

// Mirror returns the Do that undoes d's operation, its vector advanced
// by amount (the distance the user's own counter has moved since d was
// originally committed).
func (d Do) Mirror(amount uint64) Request {
	nv := d.Vec.Clone()
	nv.Add(d.UserID, amount)
	return Do{UserID: d.UserID, Vec: nv, Operation: d.Operation.Mirror()}
}

// MakeReversible replaces any non-reversible Delete leaf in d's
// (already translated) operation tree with a reconstructed reversible
// one, consulting live as the buffer stands immediately before d
// itself applies.
func (d Do) MakeReversible(live segment.SegmentBuffer) Do {
	return Do{UserID: d.UserID, Vec: d.Vec, Operation: op.MakeReversible(d.Operation, live)}
}

// Undo references the most recent unmatched Do by the same user,
// resolved through the association rule; a scan that ends on any other
// kind of request makes the Undo malformed.
type Undo struct {
	UserID vector.SessionID
	Vec    vector.StateVector
}

func (u Undo) isRequest() {}

// User returns the issuing session.
func (u Undo) User() vector.SessionID { return u.UserID }

// Vector returns the state vector this request was authored against.
func (u Undo) Vector() vector.StateVector { return u.Vec }

// Fold returns a copy of u with session's counter advanced by amount.
func (u Undo) Fold(session vector.SessionID, amount uint64) Request {
	nv := u.Vec.Clone()
	nv.Add(session, amount)
	return Undo{UserID: u.UserID, Vec: nv}
}

// Associate walks log in reverse to find the index of the Do this Undo
// targets, per the association rule. selfIndex is u's own position in
// log, or -1 if u is not (yet) a log entry; it is always excluded from
// the scan so an Undo never matches itself.
func (u Undo) Associate(log []Request, selfIndex int) (int, error) {
	idx, found := associate(log, selfIndex, u.UserID, u.Vec.Get(u.UserID), func(r Request) bool {
		_, ok := r.(Undo)
		return ok
	})
	if !found {
		return 0, errs.ErrMalformedUndoRedo
	}
	if _, ok := log[idx].(Do); !ok {
		return 0, errs.ErrMalformedUndoRedo
	}
	return idx, nil
}

// Redo references the most recent unmatched Undo by the same user.
type Redo struct {
	UserID vector.SessionID
	Vec    vector.StateVector
}

func (r Redo) isRequest() {}

// User returns the issuing session.
func (r Redo) User() vector.SessionID { return r.UserID }

// Vector returns the state vector this request was authored against.
func (r Redo) Vector() vector.StateVector { return r.Vec }

// Fold returns a copy of r with session's counter advanced by amount.
func (r Redo) Fold(session vector.SessionID, amount uint64) Request {
	nv := r.Vec.Clone()
	nv.Add(session, amount)
	return Redo{UserID: r.UserID, Vec: nv}
}

// Associate walks log in reverse to find the index of the Undo this
// Redo targets.
func (r Redo) Associate(log []Request, selfIndex int) (int, error) {
	idx, found := associate(log, selfIndex, r.UserID, r.Vec.Get(r.UserID), func(req Request) bool {
		_, ok := req.(Redo)
		return ok
	})
	if !found {
		return 0, errs.ErrMalformedUndoRedo
	}
	if _, ok := log[idx].(Undo); !ok {
		return 0, errs.ErrMalformedUndoRedo
	}
	return idx, nil
}

// associate implements the shared scan: walk log backward, tracking a
// nesting counter that starts at 1. Entries not belonging to user, or
// whose own counter for user exceeds selfVec (they happened "after"
// the request being resolved), are skipped. Every other matching entry
// adjusts the counter: ownKind entries increment it, anything else
// decrements it. The scan stops at the first entry that drives the
// counter to zero.
func associate(log []Request, selfIndex int, user vector.SessionID, selfVec uint64, ownKind func(Request) bool) (int, bool) {
	sequence := 1
	for i := len(log) - 1; i >= 0; i-- {
		if i == selfIndex {
			continue
		}
		req := log[i]
		if req.User() != user {
			continue
		}
		if req.Vector().Get(user) > selfVec {
			continue
		}
		if ownKind(req) {
			sequence++
		} else {
			sequence--
		}
		if sequence == 0 {
			return i, true
		}
	}
	return 0, false
}
