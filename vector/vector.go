// Package vector implements the per-session causality tracking used by
// the OT engine: a state vector is a dense array of monotonic counters,
// one per session, that records how much of each session's history a
// given request or replica has observed.
package vector

import (
	"fmt"

	"github.com/willibrandon/otengine/errs"
)

// SessionID identifies one open editor session. SessionID 0 is
// reserved (NoOwner) and denotes a segment or request with no live
// owner, the tombstone left behind once compaction collapses history.
type SessionID uint16

// NoOwner is the reserved SessionID used as a tombstone after
// compaction rewrites prefix log entries and their segments.
const NoOwner SessionID = 0

// StateVector is a dense, growable array of counters indexed by
// SessionID. A missing entry is equivalent to zero; trailing zeros
// never affect equality or comparison.
type StateVector struct {
	counts []uint64
}

// New returns an empty StateVector.
func New() StateVector {
	return StateVector{}
}

// FromMap builds a StateVector from a sparse session->count mapping,
// useful when deserialising a request's vector field from its sparse
// (session, count) wire form.
func FromMap(m map[SessionID]uint64) StateVector {
	v := New()
	for s, c := range m {
		v.Set(s, c)
	}
	return v
}

func (v *StateVector) ensure(s SessionID) {
	if int(s) >= len(v.counts) {
		grown := make([]uint64, int(s)+1)
		copy(grown, v.counts)
		v.counts = grown
	}
}

// Get returns the counter for s, or 0 if s has never been recorded.
func (v StateVector) Get(s SessionID) uint64 {
	if int(s) >= len(v.counts) {
		return 0
	}
	return v.counts[s]
}

// Set assigns the counter for s to value, growing the backing array if
// needed.
func (v *StateVector) Set(s SessionID, value uint64) {
	v.ensure(s)
	v.counts[s] = value
}

// Add increments the counter for s by delta.
func (v *StateVector) Add(s SessionID, delta uint64) {
	v.ensure(s)
	v.counts[s] += delta
}

// Remove decrements the counter for s by delta. It panics on
// underflow: a state vector counter going negative is an invariant
// violation, never a user error.
func (v *StateVector) Remove(s SessionID, delta uint64) {
	v.ensure(s)
	if v.counts[s] < delta {
		panic(fmt.Errorf("%w: session %d has %d, cannot remove %d", errs.ErrVectorUnderflow, s, v.counts[s], delta))
	}
	v.counts[s] -= delta
}

// CasuallyBefore reports whether v causally precedes or equals other:
// every session's counter in v is no greater than the corresponding
// counter in other.
func (v StateVector) CasuallyBefore(other StateVector) bool {
	for s, c := range v.counts {
		if c > other.Get(SessionID(s)) {
			return false
		}
	}
	return true
}

// Equal reports whether v and other agree on every session's counter,
// ignoring any difference in trailing zeros between the two backing
// arrays.
func (v StateVector) Equal(other StateVector) bool {
	n := len(v.counts)
	if len(other.counts) > n {
		n = len(other.counts)
	}
	for s := 0; s < n; s++ {
		if v.Get(SessionID(s)) != other.Get(SessionID(s)) {
			return false
		}
	}
	return true
}

// LCS returns the componentwise sum of v and other, the "least common
// successor" vector used when merging two independently-advanced
// vectors.
func (v StateVector) LCS(other StateVector) StateVector {
	out := New()
	n := len(other.counts)
	if len(v.counts) > n {
		n = len(v.counts)
	}
	for s := 0; s < n; s++ {
		out.Add(SessionID(s), v.Get(SessionID(s))+other.Get(SessionID(s)))
	}
	return out
}

// Sessions returns every session index currently tracked by v,
// including sessions whose counter happens to be zero but were grown
// into the backing array (e.g. via Set). Used by the reachability
// predicate to enumerate sessions to check.
func (v StateVector) Sessions() []SessionID {
	out := make([]SessionID, len(v.counts))
	for s := range v.counts {
		out[s] = SessionID(s)
	}
	return out
}

// Clone returns an independent copy of v.
func (v StateVector) Clone() StateVector {
	out := StateVector{counts: make([]uint64, len(v.counts))}
	copy(out.counts, v.counts)
	return out
}

// With returns a copy of v with session s set to value, leaving v
// unmodified. Convenient for the engine's translate recursion, which
// repeatedly derives a new target vector from an existing one.
func (v StateVector) With(s SessionID, value uint64) StateVector {
	out := v.Clone()
	out.Set(s, value)
	return out
}

// WithRemoved returns a copy of v with delta subtracted from session
// s, leaving v unmodified.
func (v StateVector) WithRemoved(s SessionID, delta uint64) StateVector {
	out := v.Clone()
	out.Remove(s, delta)
	return out
}
