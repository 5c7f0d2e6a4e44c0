package snapshot

import (
	"testing"

	"github.com/willibrandon/otengine/op"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/vector"
)

func TestEncodeDecodeVector(t *testing.T) {
	v := vector.New()
	v.Set(1, 3)
	v.Set(2, 7)

	entries := EncodeVector(v)
	got := DecodeVector(entries)

	if !got.Equal(v) {
		t.Fatalf("round-trip mismatch: got %v, want %v", got, v)
	}
}

func TestEncodeDecodeVectorSkipsZero(t *testing.T) {
	v := vector.New()
	v.Set(1, 0)
	v.Set(2, 5)

	entries := EncodeVector(v)
	for _, e := range entries {
		if e.Session == 1 {
			t.Fatalf("expected zero-count session to be skipped, found %v", e)
		}
	}
}

func TestEncodeDecodeBuffer(t *testing.T) {
	buf := segment.FromBytes(1, []byte("hello"))
	world := segment.FromBytes(2, []byte("world"))
	buf.Splice(buf.Len(), buf.Len(), &world)

	dtos := EncodeSegments(buf.Segments())
	got := DecodeBuffer(dtos)

	if !got.Equal(buf) {
		t.Fatalf("round-trip mismatch: got %v, want %v", got.Bytes(), buf.Bytes())
	}
}

func TestEncodeDecodeRequestDo(t *testing.T) {
	v := vector.New()
	v.Set(1, 2)

	req := request.Do{
		UserID: 1,
		Vec:    v,
		Operation: op.Insert{
			Position: 0,
			Buffer:   segment.FromBytes(1, []byte("abc")),
		},
	}

	dto := EncodeRequest(req)
	decoded, err := DecodeRequest(dto)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}

	got, ok := decoded.(request.Do)
	if !ok {
		t.Fatalf("expected request.Do, got %T", decoded)
	}
	if got.UserID != req.UserID || !got.Vec.Equal(req.Vec) {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestEncodeDecodeRequestUndoRedo(t *testing.T) {
	v := vector.New()
	v.Set(1, 1)

	for _, req := range []request.Request{
		request.Undo{UserID: 1, Vec: v},
		request.Redo{UserID: 1, Vec: v},
	} {
		dto := EncodeRequest(req)
		decoded, err := DecodeRequest(dto)
		if err != nil {
			t.Fatalf("DecodeRequest: %v", err)
		}
		if decoded.User() != req.User() || !decoded.Vector().Equal(req.Vector()) {
			t.Fatalf("round-trip mismatch for %T: got %+v, want %+v", req, decoded, req)
		}
	}
}

func TestEncodeDecodeSplitOperation(t *testing.T) {
	split := op.Split{
		First:  op.Insert{Position: 0, Buffer: segment.FromBytes(1, []byte("ab"))},
		Second: op.Delete{Position: 2, What: op.NonReversible(3)},
	}

	dto := encodeOperation(split)
	if dto.Kind != "split" {
		t.Fatalf("expected split kind, got %q", dto.Kind)
	}
	back := decodeOperation(dto)

	got, ok := back.(op.Split)
	if !ok {
		t.Fatalf("expected op.Split, got %T", back)
	}
	if _, ok := got.First.(op.Insert); !ok {
		t.Fatalf("expected First to decode as op.Insert, got %T", got.First)
	}
	if _, ok := got.Second.(op.Delete); !ok {
		t.Fatalf("expected Second to decode as op.Delete, got %T", got.Second)
	}
}

func TestDecodeRequestUnknownKind(t *testing.T) {
	_, err := DecodeRequest(RequestDTO{Kind: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown request kind")
	}
}
