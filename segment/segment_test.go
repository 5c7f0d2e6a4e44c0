package segment

import (
	"testing"

	"github.com/willibrandon/otengine/vector"
)

const (
	sessionA vector.SessionID = 1
	sessionB vector.SessionID = 2
)

func TestFromBytesEmptyYieldsEmptyBuffer(t *testing.T) {
	b := FromBytes(sessionA, nil)
	if b.Len() != 0 || !b.IsEmpty() {
		t.Fatalf("expected empty buffer, got len=%d", b.Len())
	}
}

func TestLenMatchesSumOfSegments(t *testing.T) {
	b := FromSegments([]Segment{
		{Owner: sessionA, Bytes: []byte("ab")},
		{Owner: sessionB, Bytes: []byte("cde")},
	})
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}
}

func TestSlicePreservesSegmentBoundaries(t *testing.T) {
	b := FromSegments([]Segment{
		{Owner: sessionA, Bytes: []byte("abc")},
		{Owner: sessionB, Bytes: []byte("def")},
	})

	got := b.Slice(1, 5)
	if string(got.Bytes()) != "bcde" {
		t.Fatalf("Slice bytes = %q, want %q", got.Bytes(), "bcde")
	}
	segs := got.Segments()
	if len(segs) != 2 {
		t.Fatalf("expected slice to keep 2 segments at the owner boundary, got %d", len(segs))
	}
	if segs[0].Owner != sessionA || string(segs[0].Bytes) != "bc" {
		t.Errorf("segs[0] = %+v, want owner=A bytes=bc", segs[0])
	}
	if segs[1].Owner != sessionB || string(segs[1].Bytes) != "de" {
		t.Errorf("segs[1] = %+v, want owner=B bytes=de", segs[1])
	}
}

func TestSliceOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range slice")
		}
	}()
	b := FromBytes(sessionA, []byte("abc"))
	b.Slice(0, 10)
}

func TestSpliceAtInteriorSplitsSegment(t *testing.T) {
	b := FromBytes(sessionA, []byte("abcdef"))
	b.Splice(2, 2, nil)
	if string(b.Bytes()) != "abcdef" {
		t.Fatalf("pure positional splice with no removal changed bytes: %q", b.Bytes())
	}

	b2 := FromBytes(sessionA, []byte("abcdef"))
	b2.Splice(2, 4, nil)
	if got := string(b2.Bytes()); got != "abef" {
		t.Fatalf("Splice(2,4,nil) = %q, want %q", got, "abef")
	}
	if b2.Len() != len(b2.Bytes()) {
		t.Fatalf("Len() = %d, want %d (buffer length law)", b2.Len(), len(b2.Bytes()))
	}
}

func TestSpliceWithReplacementRetainsOwner(t *testing.T) {
	b := FromBytes(sessionA, []byte("abcdef"))
	repl := FromBytes(sessionB, []byte("XY"))
	b.Splice(2, 4, &repl)

	if got := string(b.Bytes()); got != "abXYef" {
		t.Fatalf("buffer = %q, want %q", got, "abXYef")
	}
	segs := b.Segments()
	found := false
	for _, s := range segs {
		if s.Owner == sessionB && string(s.Bytes) == "XY" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected replacement segment to retain owner B, got %+v", segs)
	}
}

func TestSpliceSpanningWholeSegmentDropsIt(t *testing.T) {
	b := FromSegments([]Segment{
		{Owner: sessionA, Bytes: []byte("ab")},
		{Owner: sessionB, Bytes: []byte("cd")},
		{Owner: sessionA, Bytes: []byte("ef")},
	})
	b.Splice(2, 4, nil)
	if got := string(b.Bytes()); got != "abef" {
		t.Fatalf("buffer = %q, want %q", got, "abef")
	}
}

func TestSpliceOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range splice")
		}
	}()
	b := FromBytes(sessionA, []byte("abc"))
	b.Splice(1, 10, nil)
}

func TestCompactCoalescesAdjacentSameOwner(t *testing.T) {
	b := FromSegments([]Segment{
		{Owner: sessionA, Bytes: []byte("ab")},
		{Owner: sessionA, Bytes: []byte("cd")},
		{Owner: sessionB, Bytes: []byte("e")},
	})
	b.Compact()

	segs := b.Segments()
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments after compact, got %d: %+v", len(segs), segs)
	}
	if segs[0].Owner != sessionA || string(segs[0].Bytes) != "abcd" {
		t.Errorf("segs[0] = %+v, want owner=A bytes=abcd", segs[0])
	}
	if segs[1].Owner != sessionB || string(segs[1].Bytes) != "e" {
		t.Errorf("segs[1] = %+v, want owner=B bytes=e", segs[1])
	}
}

func TestCompactIsIdempotent(t *testing.T) {
	b := FromSegments([]Segment{
		{Owner: sessionA, Bytes: []byte("ab")},
		{Owner: sessionA, Bytes: []byte("cd")},
	})
	b.Compact()
	first := b.Segments()
	b.Compact()
	second := b.Segments()

	if len(first) != len(second) {
		t.Fatalf("compact is not idempotent: %+v vs %+v", first, second)
	}
	for i := range first {
		if first[i].Owner != second[i].Owner || string(first[i].Bytes) != string(second[i].Bytes) {
			t.Fatalf("compact is not idempotent at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// TestCompactionScenario starts with
// segments [(1,"ab"),(1,"cd"),(2,"e")], compacts to [(1,"abcd"),(2,"e")],
// then splices [0..2] with replacement [(2,"X")] to get
// [(2,"X"),(1,"cd"),(2,"e")] after compact.
func TestCompactionScenario(t *testing.T) {
	b := FromSegments([]Segment{
		{Owner: sessionA, Bytes: []byte("ab")},
		{Owner: sessionA, Bytes: []byte("cd")},
		{Owner: sessionB, Bytes: []byte("e")},
	})
	b.Compact()

	repl := FromBytes(sessionB, []byte("X"))
	b.Splice(0, 2, &repl)

	if got := string(b.Bytes()); got != "Xcde" {
		t.Fatalf("buffer = %q, want %q", got, "Xcde")
	}
	segs := b.Segments()
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Owner != sessionB || string(segs[0].Bytes) != "X" {
		t.Errorf("segs[0] = %+v, want owner=B bytes=X", segs[0])
	}
	if segs[1].Owner != sessionA || string(segs[1].Bytes) != "cd" {
		t.Errorf("segs[1] = %+v, want owner=A bytes=cd", segs[1])
	}
	if segs[2].Owner != sessionB || string(segs[2].Bytes) != "e" {
		t.Errorf("segs[2] = %+v, want owner=B bytes=e", segs[2])
	}
}

func TestEqual(t *testing.T) {
	a := FromBytes(sessionA, []byte("abc"))
	b := FromBytes(sessionA, []byte("abc"))
	c := FromBytes(sessionB, []byte("abc"))

	if !a.Equal(b) {
		t.Error("expected equal buffers with same owner and bytes to be Equal")
	}
	if a.Equal(c) {
		t.Error("expected buffers with different owners to not be Equal")
	}
}
