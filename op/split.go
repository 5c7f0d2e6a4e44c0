package op

import "github.com/willibrandon/otengine/segment"

// Split is a composite operation: Second is understood to act after
// First has already been applied.
type Split struct {
	First  Operation
	Second Operation
}

func (Split) isOperation() {}

// Apply applies First, then Second, in order.
func (s Split) Apply(buf *segment.SegmentBuffer) {
	s.First.Apply(buf)
	s.Second.Apply(buf)
}

// Transform transforms both components of s against other
// independently; a Split transforms itself against anything
// componentwise on both halves.
func (s Split) Transform(other Operation, cid *ConcurrentOrder) Operation {
	return Split{
		First:  s.First.Transform(other, cid),
		Second: s.Second.Transform(other, cid),
	}
}

// Mirror returns a Split whose First is First's mirror and whose
// Second is the mirror of Second after Second has been transformed
// against First; the result applies First's mirror before Second's.
func (s Split) Mirror() Operation {
	advancedSecond := s.Second.Transform(s.First, nil)
	return Split{
		First:  s.First.Mirror(),
		Second: advancedSecond.Mirror(),
	}
}
