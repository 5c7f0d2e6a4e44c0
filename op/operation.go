// Package op implements the primitive edit operations of the OT
// engine (NoOp, Insert, Delete and Split), their pairwise transform,
// application to a segment.SegmentBuffer, and mirroring for undo.
package op

import (
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/vector"
)

// ConcurrentOrder breaks a tie when two Inserts land at the same
// position. It is meaningless for any other pair of operations.
type ConcurrentOrder int

const (
	// This means the other operation goes first: the Insert being
	// transformed is pushed to the right of the other's insertion.
	This ConcurrentOrder = iota
	// Other means the operation being transformed goes first: the
	// Insert being transformed holds its position.
	Other
)

// TieBreak derives a deterministic ConcurrentOrder from the two
// authoring sessions of a concurrent pair of Inserts: the lower
// session id always wins the "go first" slot, so the higher session's
// insert is the one that shifts (This) while the lower session's
// insert holds its position (Other). Exactly one of TieBreak(a, b)
// and TieBreak(b, a) is This; the engine always calls this with
// (thisAuthor, otherAuthor) so both sides of a transform agree on who
// goes first.
func TieBreak(self, other vector.SessionID) ConcurrentOrder {
	if self > other {
		return This
	}
	return Other
}

// Operation is the tagged union of primitive edits: NoOp, Insert,
// Delete and Split. Split is a composite whose second component acts
// after the first has already been applied.
type Operation interface {
	// Apply mutates buf to reflect this operation.
	Apply(buf *segment.SegmentBuffer)
	// Transform rewrites this operation so that applying it after
	// other has already been applied yields the same user-visible
	// effect as applying this operation first and other second. cid
	// breaks ties between concurrent same-position Inserts and is
	// ignored otherwise.
	Transform(other Operation, cid *ConcurrentOrder) Operation
	// Mirror returns the inverse of this operation. A non-reversible
	// Delete cannot be mirrored until it has been made reversible.
	Mirror() Operation

	isOperation()
}

// NoOp is the identity operation: it transforms trivially against
// anything and does nothing when applied.
type NoOp struct{}

func (NoOp) isOperation() {}

// Apply does nothing.
func (NoOp) Apply(*segment.SegmentBuffer) {}

// Transform returns NoOp unchanged.
func (NoOp) Transform(Operation, *ConcurrentOrder) Operation { return NoOp{} }

// Mirror returns NoOp unchanged.
func (NoOp) Mirror() Operation { return NoOp{} }

// transformAgainstSplit implements the "Any vs Split" law: transform
// self against other = Split(c, d) by first transforming self past c,
// then transforming self past d as it stands after c (d must itself
// be advanced past c, since d acts after c).
func transformAgainstSplit(self Operation, other Split, cid *ConcurrentOrder) Operation {
	a := self.Transform(other.First, cid)
	d := other.Second.Transform(other.First, nil)
	return a.Transform(d, cid)
}

// MakeReversible walks the Split tree of a translated operation,
// replacing every non-reversible Delete leaf with a reconstructed
// reversible one. Reversible Deletes and other operation kinds are
// returned unchanged. live is the buffer as it currently stands,
// i.e. after the operation's siblings (if any) but before this
// operation itself has been applied.
func MakeReversible(root Operation, live segment.SegmentBuffer) Operation {
	return makeReversible(root, root, live)
}

func makeReversible(node, root Operation, live segment.SegmentBuffer) Operation {
	switch v := node.(type) {
	case NoOp:
		return v
	case Insert:
		return v
	case Delete:
		if v.What.IsReversible() {
			return v
		}
		return Delete{
			Position: v.Position,
			What:     Reversible(getAffected(v, live)),
		}
	case Split:
		first := makeReversible(v.First, root, live)
		afterFirst := live
		first.Apply(&afterFirst)
		return Split{
			First:  first,
			Second: makeReversible(v.Second, root, afterFirst),
		}
	default:
		panic("op: unknown operation kind in MakeReversible")
	}
}

// getAffected reconstructs the bytes a (possibly composite) Delete
// targeted, by slicing the live buffer at each leaf Delete's range and
// restoring that leaf's Recon on top, then concatenating leaves in
// order.
func getAffected(o Operation, live segment.SegmentBuffer) segment.SegmentBuffer {
	switch v := o.(type) {
	case Delete:
		buf := live.Slice(v.Position, v.Position+v.Len())
		v.Recon.Restore(&buf)
		return buf
	case Split:
		a := getAffected(v.First, live)
		b := getAffected(v.Second, live)
		b.Splice(0, 0, &a)
		return b
	default:
		panic("op: getAffected called on a non-delete operation")
	}
}
