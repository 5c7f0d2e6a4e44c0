package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/willibrandon/otengine/op"
	"github.com/willibrandon/otengine/recon"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/vector"
)

// RequestDTO is the wire form of a request.Request: the request kind,
// issuing user, sparse (session, count) vector and, for a Do, the
// operation tree with per-Delete reversible bytes and Recon records.
type RequestDTO struct {
	Kind      string        `json:"kind"` // "do", "undo", "redo"
	User      uint16        `json:"user"`
	Vector    []VectorEntry `json:"vector"`
	Operation *OperationDTO `json:"operation,omitempty"`
}

// OperationDTO is the wire form of an op.Operation tree.
type OperationDTO struct {
	Kind string `json:"kind"` // "noop", "insert", "delete", "split"

	// Insert
	Position int          `json:"position,omitempty"`
	Buffer   []SegmentDTO `json:"buffer,omitempty"`

	// Delete
	Reversible   bool         `json:"reversible,omitempty"`
	DeleteBuffer []SegmentDTO `json:"delete_buffer,omitempty"`
	DeleteLen    int          `json:"delete_len,omitempty"`
	Recon        []ReconDTO   `json:"recon,omitempty"`

	// Split
	First  *OperationDTO `json:"first,omitempty"`
	Second *OperationDTO `json:"second,omitempty"`
}

// ReconDTO is the wire form of one recon.Segment.
type ReconDTO struct {
	Offset int          `json:"offset"`
	Buffer []SegmentDTO `json:"buffer"`
}

// Build assembles the persisted form of one document from its (buffer,
// vector, log) triple, checksumming the serialised segment and log-tail
// chunks so a later VerifyIntegrity can detect silent corruption.
func Build(documentID string, vec vector.StateVector, segs []segment.Segment, tail []request.Request) *Snapshot {
	snap := &Snapshot{
		DocumentID: documentID,
		Vector:     EncodeVector(vec),
		Segments:   EncodeSegments(segs),
		LogTail:    make([]RequestDTO, len(tail)),
		CreatedAt:  time.Now(),
	}
	for i, r := range tail {
		snap.LogTail[i] = EncodeRequest(r)
	}

	segData, _ := json.Marshal(snap.Segments)
	logData, _ := json.Marshal(snap.LogTail)
	snap.Chunks = chunkSummaries(
		map[string][]byte{"segments": segData, "log_tail": logData},
		[]string{"segments", "log_tail"})
	return snap
}

// EncodeVector flattens v into its sparse (session, count) form,
// skipping zero counters so an unused session costs nothing on disk.
func EncodeVector(v vector.StateVector) []VectorEntry {
	var out []VectorEntry
	for _, s := range v.Sessions() {
		if c := v.Get(s); c != 0 {
			out = append(out, VectorEntry{Session: uint16(s), Count: c})
		}
	}
	return out
}

// DecodeVector rebuilds a StateVector from its sparse form.
func DecodeVector(entries []VectorEntry) vector.StateVector {
	v := vector.New()
	for _, e := range entries {
		v.Set(vector.SessionID(e.Session), e.Count)
	}
	return v
}

// EncodeSegments converts a segment.SegmentBuffer's segments to their
// wire form.
func EncodeSegments(segs []segment.Segment) []SegmentDTO {
	out := make([]SegmentDTO, len(segs))
	for i, s := range segs {
		out[i] = SegmentDTO{Owner: uint16(s.Owner), Bytes: append([]byte(nil), s.Bytes...)}
	}
	return out
}

// DecodeBuffer rebuilds a SegmentBuffer from its wire form.
func DecodeBuffer(dtos []SegmentDTO) segment.SegmentBuffer {
	segs := make([]segment.Segment, len(dtos))
	for i, d := range dtos {
		segs[i] = segment.Segment{Owner: vector.SessionID(d.Owner), Bytes: d.Bytes}
	}
	return segment.FromSegments(segs)
}

// EncodeRequest converts a request.Request into its wire form.
func EncodeRequest(r request.Request) RequestDTO {
	dto := RequestDTO{
		User:   uint16(r.User()),
		Vector: EncodeVector(r.Vector()),
	}
	switch v := r.(type) {
	case request.Do:
		dto.Kind = "do"
		o := encodeOperation(v.Operation)
		dto.Operation = &o
	case request.Undo:
		dto.Kind = "undo"
	case request.Redo:
		dto.Kind = "redo"
	default:
		panic(fmt.Sprintf("snapshot: unknown request kind %T", r))
	}
	return dto
}

// DecodeRequest rebuilds a request.Request from its wire form.
func DecodeRequest(dto RequestDTO) (request.Request, error) {
	user := vector.SessionID(dto.User)
	vec := DecodeVector(dto.Vector)
	switch dto.Kind {
	case "do":
		if dto.Operation == nil {
			return nil, fmt.Errorf("snapshot: do request missing operation")
		}
		return request.Do{UserID: user, Vec: vec, Operation: decodeOperation(*dto.Operation)}, nil
	case "undo":
		return request.Undo{UserID: user, Vec: vec}, nil
	case "redo":
		return request.Redo{UserID: user, Vec: vec}, nil
	default:
		return nil, fmt.Errorf("snapshot: unknown request kind %q", dto.Kind)
	}
}

func encodeOperation(o op.Operation) OperationDTO {
	switch v := o.(type) {
	case op.NoOp:
		return OperationDTO{Kind: "noop"}
	case op.Insert:
		return OperationDTO{
			Kind:     "insert",
			Position: v.Position,
			Buffer:   EncodeSegments(v.Buffer.Segments()),
		}
	case op.Delete:
		dto := OperationDTO{
			Kind:     "delete",
			Position: v.Position,
			Recon:    encodeRecon(v.Recon),
		}
		if buf, ok := v.What.Buffer(); ok {
			dto.Reversible = true
			dto.DeleteBuffer = EncodeSegments(buf.Segments())
		} else {
			dto.DeleteLen = v.What.Len()
		}
		return dto
	case op.Split:
		first := encodeOperation(v.First)
		second := encodeOperation(v.Second)
		return OperationDTO{Kind: "split", First: &first, Second: &second}
	default:
		panic(fmt.Sprintf("snapshot: unknown operation kind %T", o))
	}
}

func decodeOperation(dto OperationDTO) op.Operation {
	switch dto.Kind {
	case "noop":
		return op.NoOp{}
	case "insert":
		return op.Insert{Position: dto.Position, Buffer: DecodeBuffer(dto.Buffer)}
	case "delete":
		what := op.NonReversible(dto.DeleteLen)
		if dto.Reversible {
			what = op.Reversible(DecodeBuffer(dto.DeleteBuffer))
		}
		return op.Delete{Position: dto.Position, What: what, Recon: decodeRecon(dto.Recon)}
	case "split":
		return op.Split{First: decodeOperation(*dto.First), Second: decodeOperation(*dto.Second)}
	default:
		panic(fmt.Sprintf("snapshot: unknown operation kind %q", dto.Kind))
	}
}

func encodeRecon(r recon.Recon) []ReconDTO {
	segs := r.Segments()
	out := make([]ReconDTO, len(segs))
	for i, s := range segs {
		out[i] = ReconDTO{Offset: s.Offset, Buffer: EncodeSegments(s.Buffer.Segments())}
	}
	return out
}

func decodeRecon(dtos []ReconDTO) recon.Recon {
	r := recon.New()
	for _, d := range dtos {
		r.Add(d.Offset, DecodeBuffer(d.Buffer))
	}
	return r
}
