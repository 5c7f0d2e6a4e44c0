// Package snapshot persists a document's (SegmentBuffer, StateVector,
// Log) triple so a process can resume it after a restart. It sits
// entirely outside the OT core: nothing here reaches into translate or
// transform, and a failed save never blocks a commit.
package snapshot

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is the persisted form of one document: the state vector it
// corresponds to, the compacted buffer's segments, and the tail of the
// log not yet folded into that baseline.
type Snapshot struct {
	DocumentID string         `json:"document_id"`
	Vector     []VectorEntry  `json:"vector"`
	Segments   []SegmentDTO   `json:"segments"`
	LogTail    []RequestDTO   `json:"log_tail"`
	Chunks     []ChunkSummary `json:"chunks"`
	CreatedAt  time.Time      `json:"created_at"`

	// Encrypted and CipherText are set by EncryptingBackend: when
	// Encrypted is true, every field above except DocumentID and
	// CreatedAt is empty and CipherText holds the sealed JSON encoding
	// of the real Snapshot.
	Encrypted  bool   `json:"encrypted,omitempty"`
	CipherText []byte `json:"cipher_text,omitempty"`
}

// VectorEntry is one (session, count) pair of a StateVector's sparse
// serialisation.
type VectorEntry struct {
	Session uint16 `json:"session"`
	Count   uint64 `json:"count"`
}

// SegmentDTO is the wire form of a segment.Segment.
type SegmentDTO struct {
	Owner uint16 `json:"owner"`
	Bytes []byte `json:"bytes"`
}

// ChunkSummary records the xxhash checksum of one serialised chunk of
// the snapshot (a segment run or a log run), so VerifyIntegrity can
// detect silent corruption without re-parsing the whole document.
type ChunkSummary struct {
	Label    string `json:"label"`
	Checksum uint64 `json:"checksum"`
}

// IntegrityReport is the result of VerifyIntegrity against a stored
// Snapshot.
type IntegrityReport struct {
	Timestamp   time.Time `json:"timestamp"`
	DocumentID  string    `json:"document_id"`
	Valid       bool      `json:"valid"`
	ChunkCount  int       `json:"chunk_count"`
	BadChunks   []string  `json:"bad_chunks,omitempty"`
	VectorCheck bool      `json:"vector_monotonic"`
}

// Backend persists and retrieves Snapshots for a document id. A
// snapshot supersedes its predecessor wholesale, so the surface is
// Save/Load/VerifyIntegrity rather than an append API.
type Backend interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, documentID string) (*Snapshot, error)
	VerifyIntegrity(ctx context.Context, documentID string) (*IntegrityReport, error)
	Name() string
	Close() error
}

// Config is implemented by each backend's configuration type.
type Config interface {
	Type() string
	Validate() error
}

// Create builds a Backend from cfg, dispatching on its concrete type.
func Create(cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot backend configuration: %w", err)
	}
	switch c := cfg.(type) {
	case FilesystemConfig:
		return NewFilesystemBackend(c)
	case S3Config:
		return NewS3Backend(c)
	case AzureConfig:
		return NewAzureBackend(c)
	case GCSConfig:
		return NewGCSBackend(c)
	default:
		return nil, fmt.Errorf("unknown snapshot backend type: %s", cfg.Type())
	}
}

// BackendError wraps a backend-specific failure with the backend and
// operation that produced it.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("snapshot backend %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
