// Package segment implements the session-tagged byte buffer the OT
// engine edits. Every byte in a SegmentBuffer belongs to exactly one
// Segment, a contiguous run produced by a single session in a single
// insertion; splice, slice and compact all preserve that tagging.
package segment

import (
	"fmt"

	"github.com/willibrandon/otengine/errs"
	"github.com/willibrandon/otengine/vector"
)

// Segment is a contiguous run of bytes all produced by one session in
// one insertion.
type Segment struct {
	Owner vector.SessionID
	Bytes []byte
}

// Len returns the number of bytes in the segment.
func (s Segment) Len() int { return len(s.Bytes) }

func (s Segment) clone() Segment {
	return Segment{Owner: s.Owner, Bytes: append([]byte(nil), s.Bytes...)}
}

// SegmentBuffer is an ordered sequence of Segments with a cached total
// length. It is mutated through Splice and Compact; Compact runs
// automatically at the end of every Splice, so after a Splice no two
// adjacent segments share an owner. FromSegments and Slice do not
// compact.
type SegmentBuffer struct {
	segments []Segment
	length   int
}

// New returns an empty SegmentBuffer.
func New() SegmentBuffer {
	return SegmentBuffer{}
}

// FromSegments builds a SegmentBuffer from a slice of segments as-is
// (it does not compact); len is recomputed from the segments.
func FromSegments(segs []Segment) SegmentBuffer {
	out := make([]Segment, len(segs))
	length := 0
	for i, s := range segs {
		out[i] = s.clone()
		length += s.Len()
	}
	return SegmentBuffer{segments: out, length: length}
}

// FromBytes builds a single-segment buffer owned by owner.
func FromBytes(owner vector.SessionID, b []byte) SegmentBuffer {
	if len(b) == 0 {
		return New()
	}
	return FromSegments([]Segment{{Owner: owner, Bytes: b}})
}

// Len returns the total byte count of the buffer.
func (b SegmentBuffer) Len() int { return b.length }

// IsEmpty reports whether the buffer holds no bytes.
func (b SegmentBuffer) IsEmpty() bool { return b.length == 0 }

// Segments returns a defensive copy of the buffer's segments, in
// order.
func (b SegmentBuffer) Segments() []Segment {
	out := make([]Segment, len(b.segments))
	for i, s := range b.segments {
		out[i] = s.clone()
	}
	return out
}

// Bytes flattens the buffer into a single byte slice, discarding
// ownership information. Used for display; snapshots serialise
// Segments instead, keeping ownership.
func (b SegmentBuffer) Bytes() []byte {
	out := make([]byte, 0, b.length)
	for _, s := range b.segments {
		out = append(out, s.Bytes...)
	}
	return out
}

// Equal reports whether a and b contain the same segments in the same
// order, including ownership. Used by tests; production code should
// prefer comparing Bytes() when ownership does not matter.
func (b SegmentBuffer) Equal(other SegmentBuffer) bool {
	if b.length != other.length || len(b.segments) != len(other.segments) {
		return false
	}
	for i := range b.segments {
		a, o := b.segments[i], other.segments[i]
		if a.Owner != o.Owner || string(a.Bytes) != string(o.Bytes) {
			return false
		}
	}
	return true
}

// Slice returns a new SegmentBuffer covering the half-open byte range
// [start, end). Segment boundaries within the range are preserved;
// segments of different owners are never merged. Panics if end
// exceeds Len, which means a prior transform produced bad
// coordinates.
func (b SegmentBuffer) Slice(start, end int) SegmentBuffer {
	if start < 0 || end < start || end > b.length {
		panic(fmt.Errorf("%w: [%d:%d) of length %d", errs.ErrSliceOutOfRange, start, end, b.length))
	}
	var out []Segment
	offset := 0
	for _, seg := range b.segments {
		segStart, segEnd := offset, offset+seg.Len()
		offset = segEnd

		lo, hi := segStart, segEnd
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		if lo < hi {
			out = append(out, Segment{
				Owner: seg.Owner,
				Bytes: append([]byte(nil), seg.Bytes[lo-segStart:hi-segStart]...),
			})
		}
		if segEnd >= end {
			break
		}
	}
	return SegmentBuffer{segments: out, length: end - start}
}

// Splice removes the bytes in the half-open range [start, end) and, if
// replacement is non-nil, inserts its segments at start. Replacement
// segments retain their owners. The buffer is left compacted; a
// splice at a segment's interior splits it, and a splice spanning
// whole segments drops them. Panics if end exceeds Len.
func (b *SegmentBuffer) Splice(start, end int, replacement *SegmentBuffer) {
	if start < 0 || end < start || end > b.length {
		panic(fmt.Errorf("%w: [%d:%d) of length %d", errs.ErrSpliceOutOfRange, start, end, b.length))
	}

	left := b.Slice(0, start)
	right := b.Slice(end, b.length)

	segs := make([]Segment, 0, len(left.segments)+len(right.segments)+1)
	segs = append(segs, left.segments...)
	length := left.length
	if replacement != nil {
		segs = append(segs, replacement.segments...)
		length += replacement.length
	}
	segs = append(segs, right.segments...)
	length += right.length

	b.segments = segs
	b.length = length
	b.Compact()
}

// Compact coalesces adjacent segments that share the same owner. It is
// idempotent: running it twice in a row leaves the buffer unchanged.
func (b *SegmentBuffer) Compact() {
	if len(b.segments) == 0 {
		return
	}
	out := make([]Segment, 0, len(b.segments))
	for _, seg := range b.segments {
		if seg.Len() == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Owner == seg.Owner {
			out[n-1].Bytes = append(out[n-1].Bytes, seg.Bytes...)
			continue
		}
		out = append(out, seg.clone())
	}
	b.segments = out
}
