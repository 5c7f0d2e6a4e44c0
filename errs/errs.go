// Package errs defines the sentinel error kinds shared across the
// engine's layers. Most of them mark invariant violations:
// conditions the transform algorithm or the caller's coordinate
// bookkeeping must never actually produce. They are distinguished from
// ordinary control flow (out-of-order submission) so a host process can
// tell "this request must wait" apart from "this process must be
// restarted from a snapshot".
package errs

import "errors"

var (
	// ErrOutOfOrder means a request's vector is not reachable from the
	// current state yet; the caller should enqueue and retry later,
	// not fail.
	ErrOutOfOrder = errors.New("otengine: request vector not yet reachable, enqueue and retry")

	// ErrUnreachableTarget means translate was asked to reach a state
	// vector the log cannot attain. Never triggered by a healthy log;
	// indicates caller or engine bookkeeping is wrong.
	ErrUnreachableTarget = errors.New("otengine: translate target is not reachable from the log")

	// ErrVectorUnderflow means a state vector counter was about to go
	// negative.
	ErrVectorUnderflow = errors.New("otengine: state vector counter underflow")

	// ErrMalformedUndoRedo means the association scan for an Undo or
	// Redo request found no partner, or found a partner of the wrong
	// kind. The request is dropped rather than corrupting state.
	ErrMalformedUndoRedo = errors.New("otengine: undo/redo has no valid associated request")

	// ErrMergeKindMismatch means a reversible Delete was merged with a
	// non-reversible one. The transform algorithm must never produce
	// this pairing.
	ErrMergeKindMismatch = errors.New("otengine: cannot merge deletes of differing reversibility")

	// ErrSliceOutOfRange means a SegmentBuffer slice was requested past
	// the buffer's length.
	ErrSliceOutOfRange = errors.New("otengine: slice range exceeds buffer length")

	// ErrSpliceOutOfRange means a SegmentBuffer splice range was
	// invalid for the buffer's current length.
	ErrSpliceOutOfRange = errors.New("otengine: splice range exceeds buffer length")
)
