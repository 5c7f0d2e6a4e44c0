package engine

import (
	"testing"

	"github.com/willibrandon/otengine/op"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/vector"
)

const (
	userA vector.SessionID = 1
	userB vector.SessionID = 2
)

func mustSubmit(t *testing.T, e *Engine, r request.Request) {
	t.Helper()
	if err := e.Submit(r); err != nil {
		t.Fatalf("Submit(%#v): %v", r, err)
	}
}

// TestConcurrentInsertTieBreakConverges drives two concurrent inserts
// at the same position end to end through Submit and checks they
// converge to the tie-break result.
func TestConcurrentInsertTieBreakConverges(t *testing.T) {
	e := New()
	setup := request.Do{
		UserID:    userA,
		Vec:       vector.FromMap(nil),
		Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(userA, []byte("abc"))},
	}
	mustSubmit(t, e, setup)

	seenVec := vector.FromMap(map[vector.SessionID]uint64{userA: 1})

	a := request.Do{
		UserID:    userA,
		Vec:       seenVec,
		Operation: op.Insert{Position: 1, Buffer: segment.FromBytes(userA, []byte("X"))},
	}
	b := request.Do{
		UserID:    userB,
		Vec:       seenVec,
		Operation: op.Insert{Position: 1, Buffer: segment.FromBytes(userB, []byte("Y"))},
	}

	mustSubmit(t, e, a)
	mustSubmit(t, e, b)

	if got := string(e.CurrentBuffer().Bytes()); got != "aXYbc" {
		t.Errorf("buffer = %q, want %q", got, "aXYbc")
	}
}

// TestConcurrentInsertTieBreakConvergesReverseOrder commits the same
// two concurrent inserts in the opposite order and checks it converges
// to the same result.
func TestConcurrentInsertTieBreakConvergesReverseOrder(t *testing.T) {
	e := New()
	setup := request.Do{
		UserID:    userA,
		Vec:       vector.FromMap(nil),
		Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(userA, []byte("abc"))},
	}
	mustSubmit(t, e, setup)

	seenVec := vector.FromMap(map[vector.SessionID]uint64{userA: 1})

	a := request.Do{
		UserID:    userA,
		Vec:       seenVec,
		Operation: op.Insert{Position: 1, Buffer: segment.FromBytes(userA, []byte("X"))},
	}
	b := request.Do{
		UserID:    userB,
		Vec:       seenVec,
		Operation: op.Insert{Position: 1, Buffer: segment.FromBytes(userB, []byte("Y"))},
	}

	mustSubmit(t, e, b)
	mustSubmit(t, e, a)

	if got := string(e.CurrentBuffer().Bytes()); got != "aXYbc" {
		t.Errorf("buffer = %q, want %q", got, "aXYbc")
	}
}

// TestUndoOfOwnInsertRestoresBuffer submits an Insert then an Undo
// referencing it and checks the buffer returns to empty.
func TestUndoOfOwnInsertRestoresBuffer(t *testing.T) {
	e := New()
	ins := request.Do{
		UserID:    userA,
		Vec:       vector.FromMap(nil),
		Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(userA, []byte("X"))},
	}
	mustSubmit(t, e, ins)
	if got := string(e.CurrentBuffer().Bytes()); got != "X" {
		t.Fatalf("buffer after insert = %q, want %q", got, "X")
	}

	undo := request.Undo{UserID: userA, Vec: vector.FromMap(map[vector.SessionID]uint64{userA: 1})}
	mustSubmit(t, e, undo)

	if got := string(e.CurrentBuffer().Bytes()); got != "" {
		t.Errorf("buffer after undo = %q, want empty", got)
	}
	if got := e.CurrentVector().Get(userA); got != 2 {
		t.Errorf("vector[A] = %d, want 2", got)
	}
}

// TestOutOfOrderRequestWaitsInQueue checks that a request whose vector
// is not yet reachable is queued rather than rejected, and commits once
// its prerequisite arrives.
func TestOutOfOrderRequestWaitsInQueue(t *testing.T) {
	e := New()

	// b is authored as if it had already seen a's insert, but a has not
	// been submitted yet: b must wait.
	b := request.Do{
		UserID:    userB,
		Vec:       vector.FromMap(map[vector.SessionID]uint64{userA: 1}),
		Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(userB, []byte("Y"))},
	}
	mustSubmit(t, e, b)
	if e.QueueLen() != 1 {
		t.Fatalf("expected b to be queued, QueueLen=%d", e.QueueLen())
	}
	if got := string(e.CurrentBuffer().Bytes()); got != "" {
		t.Fatalf("buffer should be untouched while b waits, got %q", got)
	}

	a := request.Do{
		UserID:    userA,
		Vec:       vector.FromMap(nil),
		Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(userA, []byte("X"))},
	}
	mustSubmit(t, e, a)

	if e.QueueLen() != 0 {
		t.Errorf("expected queue to drain once a arrives, QueueLen=%d", e.QueueLen())
	}
	// b's vector already equals a's post-commit vector, i.e. b was
	// authored after observing a's insert: it commits unchanged, at its
	// own position 0, which is "before the X".
	if got := string(e.CurrentBuffer().Bytes()); got != "YX" {
		t.Errorf("buffer = %q, want %q", got, "YX")
	}
}

// TestUndoWithNoPartnerIsRejected checks that an Undo with no matching
// Do is dropped with a diagnostic rather than corrupting state.
func TestUndoWithNoPartnerIsRejected(t *testing.T) {
	e := New()
	undo := request.Undo{UserID: userA, Vec: vector.FromMap(nil)}
	if err := e.Submit(undo); err == nil {
		t.Fatal("expected an error submitting an orphan undo")
	}
	if e.LogLen() != 0 {
		t.Errorf("orphan undo must not be logged, LogLen=%d", e.LogLen())
	}
}
