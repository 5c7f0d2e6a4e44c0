package op

import "github.com/willibrandon/otengine/segment"

// Insert inserts Buffer at Position.
type Insert struct {
	Position int
	Buffer   segment.SegmentBuffer
}

func (Insert) isOperation() {}

// Len returns the number of bytes this Insert adds.
func (i Insert) Len() int { return i.Buffer.Len() }

// Apply splices Buffer into buf at Position.
func (i Insert) Apply(buf *segment.SegmentBuffer) {
	buf.Splice(i.Position, i.Position, &i.Buffer)
}

// Mirror returns the Delete that undoes this Insert: removing exactly
// the bytes it added.
func (i Insert) Mirror() Operation {
	return Delete{Position: i.Position, What: Reversible(i.Buffer)}
}

// Transform rewrites i so it can be applied after other.
func (i Insert) Transform(other Operation, cid *ConcurrentOrder) Operation {
	switch o := other.(type) {
	case NoOp:
		return i
	case Delete:
		pos1, pos2, len2 := i.Position, o.Position, o.Len()
		switch {
		case pos1 >= pos2+len2:
			return Insert{Position: pos1 - len2, Buffer: i.Buffer}
		case pos1 < pos2:
			return Insert{Position: pos1, Buffer: i.Buffer}
		default: // pos2 <= pos1 < pos2+len2
			return Insert{Position: pos2, Buffer: i.Buffer}
		}
	case Insert:
		pos1, pos2 := i.Position, o.Position
		switch {
		case pos1 < pos2:
			return Insert{Position: pos1, Buffer: i.Buffer}
		case pos1 == pos2 && cid != nil && *cid == Other:
			return Insert{Position: pos1, Buffer: i.Buffer}
		case pos1 > pos2, pos1 == pos2 && cid != nil && *cid == This:
			return Insert{Position: pos1 + o.Len(), Buffer: i.Buffer}
		default:
			panic("op: insert/insert transform at equal position requires a tie-break")
		}
	case Split:
		return transformAgainstSplit(i, o, cid)
	default:
		panic("op: unknown operation kind in Insert.Transform")
	}
}
