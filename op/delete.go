package op

import (
	"fmt"

	"github.com/willibrandon/otengine/errs"
	"github.com/willibrandon/otengine/recon"
	"github.com/willibrandon/otengine/segment"
)

// DeleteWhat records either the exact bytes a Delete removes
// (Reversible) or only their count (NonReversible, when a prior
// transform has discarded the content because it was subsumed by a
// concurrent delete).
type DeleteWhat struct {
	reversible bool
	buf        segment.SegmentBuffer
	length     int
}

// Reversible builds a DeleteWhat carrying the exact removed bytes.
func Reversible(buf segment.SegmentBuffer) DeleteWhat {
	return DeleteWhat{reversible: true, buf: buf}
}

// NonReversible builds a DeleteWhat that only records how many bytes
// were removed.
func NonReversible(length int) DeleteWhat {
	return DeleteWhat{reversible: false, length: length}
}

// IsReversible reports whether the original bytes are known.
func (w DeleteWhat) IsReversible() bool { return w.reversible }

// Len returns the number of bytes this DeleteWhat covers.
func (w DeleteWhat) Len() int {
	if w.reversible {
		return w.buf.Len()
	}
	return w.length
}

// Buffer returns the removed bytes and true if this DeleteWhat is
// reversible; otherwise it returns the zero buffer and false.
func (w DeleteWhat) Buffer() (segment.SegmentBuffer, bool) {
	if !w.reversible {
		return segment.SegmentBuffer{}, false
	}
	return w.buf, true
}

// Delete removes the bytes at [Position, Position+What.Len()). Recon
// stashes bytes taken by concurrent deletes that overlapped this
// Delete's original target, so that a later MakeReversible call can
// reconstruct the original content.
type Delete struct {
	Position int
	What     DeleteWhat
	Recon    recon.Recon
}

func (Delete) isOperation() {}

// Len returns the number of bytes this Delete removes.
func (d Delete) Len() int { return d.What.Len() }

// Apply removes [Position, Position+Len()) from buf.
func (d Delete) Apply(buf *segment.SegmentBuffer) {
	buf.Splice(d.Position, d.Position+d.Len(), nil)
}

// Mirror returns the Insert that undoes this Delete. Panics if the
// Delete has not been made reversible: the removed bytes must be known
// before they can be reinserted.
func (d Delete) Mirror() Operation {
	buf, ok := d.What.Buffer()
	if !ok {
		panic("op: cannot mirror a non-reversible delete; call MakeReversible first")
	}
	return Insert{Position: d.Position, Buffer: buf}
}

// split divides d into two Deletes at local offset at (0 <= at <=
// d.Len()): the left half covers [Position, Position+at) of the
// pre-split coordinate system, and the right half covers the
// remaining d.Len()-at bytes that, once the left half has been
// removed, sit at the very same Position, matching how Split.Apply
// runs the two halves in sequence. Callers that need the right half's
// position in some other coordinate system (e.g. the original, before
// either half has applied) must reposition it themselves; every
// Delete-vs-Delete transform case below does exactly that, or
// discards the right half's position entirely via merge.
func (d Delete) split(at int) (left, right Delete) {
	if buf, ok := d.What.Buffer(); ok {
		return Delete{Position: d.Position, What: Reversible(buf.Slice(0, at))},
			Delete{Position: d.Position, What: Reversible(buf.Slice(at, buf.Len()))}
	}
	rec1, rec2 := d.Recon.SplitAt(at)
	return Delete{Position: d.Position, What: NonReversible(at), Recon: rec1},
		Delete{Position: d.Position, What: NonReversible(d.What.Len() - at), Recon: rec2}
}

// merge concatenates two adjacent Deletes produced by splitting the
// same original Delete. Both must share reversibility; mixing them is
// an invariant violation the transform algorithm must never produce.
func (d Delete) merge(other Delete) Delete {
	if buf, ok := d.What.Buffer(); ok {
		otherBuf, ok := other.What.Buffer()
		if !ok {
			panic(fmt.Errorf("%w: reversible delete merged with non-reversible one", errs.ErrMergeKindMismatch))
		}
		merged := buf
		merged.Splice(merged.Len(), merged.Len(), &otherBuf)
		return Delete{Position: d.Position, What: Reversible(merged)}
	}
	if other.What.IsReversible() {
		panic(fmt.Errorf("%w: non-reversible delete merged with reversible one", errs.ErrMergeKindMismatch))
	}
	return Delete{Position: d.Position, What: NonReversible(d.Len() + other.Len())}
}

// Transform rewrites d so it can be applied after other.
func (d Delete) Transform(other Operation, cid *ConcurrentOrder) Operation {
	switch o := other.(type) {
	case NoOp:
		return d
	case Delete:
		return d.transformAgainstDelete(o)
	case Insert:
		return d.transformAgainstInsert(o)
	case Split:
		return transformAgainstSplit(d, o, cid)
	default:
		panic("op: unknown operation kind in Delete.Transform")
	}
}

func (d Delete) transformAgainstInsert(o Insert) Operation {
	pos1, len1 := d.Position, d.Len()
	pos2, len2 := o.Position, o.Len()

	switch {
	case pos1+len1 <= pos2:
		return d
	case pos2 <= pos1:
		return Delete{Position: pos1 + len2, What: d.What, Recon: d.Recon}
	case pos2 > pos1 && pos2 < pos1+len1:
		left, right := d.split(pos2 - pos1)
		right.Position += len2
		return Split{First: left, Second: right}
	default:
		panic("op: unreachable delete/insert transform case")
	}
}

// transformAgainstDelete covers the six ways two concurrent deletes
// can overlap, always returning a Delete expressed in the coordinate
// system after other has applied.
func (d Delete) transformAgainstDelete(other Delete) Operation {
	pos1, len1 := d.Position, d.Len()
	pos2, len2 := other.Position, other.Len()

	switch {
	case pos1+len1 <= pos2:
		// 1. Disjoint, d to the left: unchanged.
		return d

	case pos1 >= pos2+len2:
		// 2. Disjoint, d to the right: shift left by len2.
		return Delete{Position: pos1 - len2, What: d.What, Recon: d.Recon}

	case pos2 <= pos1 && pos2+len2 >= pos1+len1:
		// 3. d fully inside other: nothing left to remove; stash the
		// bytes other already took so a later mirror can restore them.
		otherBuf, ok := other.What.Buffer()
		if !ok {
			panic("op: cannot transform a delete against a non-reversible concurrent delete")
		}
		newRecon := d.Recon.Clone()
		newRecon.Add(0, otherBuf.Slice(pos1-pos2, pos1-pos2+len1))
		if d.What.IsReversible() {
			return Delete{Position: pos2, What: Reversible(segment.New()), Recon: newRecon}
		}
		return Delete{Position: pos2, What: NonReversible(0), Recon: newRecon}

	case pos2 <= pos1 && pos2+len2 < pos1+len1:
		// 4. Left overhang: other consumed d's left portion.
		otherBuf, ok := other.What.Buffer()
		if !ok {
			panic("op: cannot transform a delete against a non-reversible concurrent delete")
		}
		_, result := d.split(pos2 + len2 - pos1)
		result.Position = pos2
		result.Recon = d.Recon.Clone()
		result.Recon.Add(0, otherBuf.Slice(pos1-pos2, otherBuf.Len()))
		return result

	case pos2 > pos1 && pos2+len2 >= pos1+len1:
		// 5. Right overhang: other consumed d's right portion.
		otherBuf, ok := other.What.Buffer()
		if !ok {
			panic("op: cannot transform a delete against a non-reversible concurrent delete")
		}
		result, _ := d.split(pos2 - pos1)
		result.Recon = d.Recon.Clone()
		result.Recon.Add(result.Len(), otherBuf.Slice(0, pos1+len1-pos2))
		return result

	case pos2 > pos1 && pos2+len2 < pos1+len1:
		// 6. other strictly inside d: remove the middle, stashing it,
		// and merge the surviving outer halves.
		otherBuf, ok := other.What.Buffer()
		if !ok {
			panic("op: cannot transform a delete against a non-reversible concurrent delete")
		}
		r1, rest := d.split(pos2 - pos1)
		_, r2 := rest.split(len2)
		result := r1.merge(r2)
		result.Recon = d.Recon.Clone()
		result.Recon.Add(pos2-pos1, otherBuf)
		return result

	default:
		panic("op: unreachable delete/delete transform case")
	}
}
