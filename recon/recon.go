// Package recon implements the side-channel that lets a Delete become
// reversible after some of the bytes it targeted have already been
// removed by a concurrent Delete. Each record remembers the bytes a
// concurrent deleter took and the offset, relative to the owning
// Delete's removed region, at which they must be reinserted to
// reconstruct the original content.
package recon

import "github.com/willibrandon/otengine/segment"

// Segment is one stashed record: buffer's bytes belong at offset when
// the record is replayed, in the coordinate system of the buffer
// Restore is applied to.
type Segment struct {
	Offset int
	Buffer segment.SegmentBuffer
}

// Recon is an ordered, append-only sequence of stashed Segments.
type Recon struct {
	segments []Segment
}

// New returns an empty Recon.
func New() Recon {
	return Recon{}
}

// Add appends a record. Records are additive and are replayed in
// insertion order by Restore.
func (r *Recon) Add(offset int, buffer segment.SegmentBuffer) {
	r.segments = append(r.segments, Segment{Offset: offset, Buffer: buffer})
}

// Segments returns the recorded segments in insertion order.
func (r Recon) Segments() []Segment {
	out := make([]Segment, len(r.segments))
	copy(out, r.segments)
	return out
}

// IsEmpty reports whether no records have been stashed.
func (r Recon) IsEmpty() bool {
	return len(r.segments) == 0
}

// Restore replays each record in insertion order, splicing its buffer
// into b at b[offset:offset], i.e. inserting without removing
// anything. Offsets refer to positions in the buffer as it stands
// after the previous records have already been replayed.
func (r Recon) Restore(b *segment.SegmentBuffer) {
	for _, seg := range r.segments {
		buf := seg.Buffer
		b.Splice(seg.Offset, seg.Offset, &buf)
	}
}

// SplitAt partitions the records into those before cut (left,
// unchanged) and those at-or-after cut (right, offsets shifted down by
// cut). A record straddling cut is not sliced: it lands on whichever
// side its start offset falls in. Delete.split is the only caller and
// only ever cuts at a record boundary, because each record stashes a
// whole slice of the concurrent deleter's buffer.
func (r Recon) SplitAt(cut int) (left, right Recon) {
	for _, seg := range r.segments {
		if seg.Offset < cut {
			left.segments = append(left.segments, seg)
		} else {
			right.segments = append(right.segments, Segment{
				Offset: seg.Offset - cut,
				Buffer: seg.Buffer,
			})
		}
	}
	return left, right
}

// Clone returns an independent copy of r.
func (r Recon) Clone() Recon {
	out := Recon{segments: make([]Segment, len(r.segments))}
	copy(out.segments, r.segments)
	return out
}
