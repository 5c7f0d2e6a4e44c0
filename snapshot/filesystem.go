package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FilesystemConfig configures a filesystem snapshot backend: a
// directory of one JSON (optionally gzipped) file per document, with
// an optional shadow copy for redundancy.
type FilesystemConfig struct {
	Path     string `json:"path"`
	Compress bool   `json:"compress"`
	Shadow   bool   `json:"shadow"`
}

// Type identifies this backend's configuration kind.
func (c FilesystemConfig) Type() string { return "filesystem" }

// Validate checks the configuration for required fields.
func (c FilesystemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("filesystem snapshot path is required")
	}
	return nil
}

// FilesystemBackend persists Snapshots as files under a directory, one
// current file per document (a snapshot supersedes its predecessor),
// written with an atomic write-then-rename and an optional shadow
// copy.
type FilesystemBackend struct {
	mu     sync.RWMutex
	config FilesystemConfig
	closed bool
}

// NewFilesystemBackend creates a filesystem snapshot backend rooted at
// cfg.Path, creating the directory (and its shadow, if enabled) if
// necessary.
func NewFilesystemBackend(cfg FilesystemConfig) (*FilesystemBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory %s: %w", cfg.Path, err)
	}
	if cfg.Shadow {
		if err := os.MkdirAll(filepath.Join(cfg.Path, "shadow"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create shadow directory: %w", err)
		}
	}
	return &FilesystemBackend{config: cfg}, nil
}

func (fb *FilesystemBackend) path(documentID string) string {
	name := documentID + ".snap"
	if fb.config.Compress {
		name += ".gz"
	}
	return filepath.Join(fb.config.Path, name)
}

// Save writes snap to disk, first to a temporary file and then
// atomically renamed into place, so a crash mid-write never leaves a
// half-written snapshot for Load to trip over.
func (fb *FilesystemBackend) Save(_ context.Context, snap *Snapshot) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.closed {
		return &BackendError{Backend: "filesystem", Op: "save", Err: fmt.Errorf("backend closed")}
	}

	data, err := fb.encode(snap)
	if err != nil {
		return &BackendError{Backend: "filesystem", Op: "save", Err: err}
	}

	target := fb.path(snap.DocumentID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &BackendError{Backend: "filesystem", Op: "save", Err: err}
	}
	if err := os.Rename(tmp, target); err != nil {
		return &BackendError{Backend: "filesystem", Op: "save", Err: err}
	}

	if fb.config.Shadow {
		shadow := filepath.Join(fb.config.Path, "shadow", filepath.Base(target))
		_ = os.WriteFile(shadow, data, 0644) // best-effort redundancy, never fails Save
	}
	return nil
}

// Load reads and decodes the snapshot for documentID.
func (fb *FilesystemBackend) Load(_ context.Context, documentID string) (*Snapshot, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	data, err := os.ReadFile(fb.path(documentID))
	if err != nil {
		return nil, &BackendError{Backend: "filesystem", Op: "load", Err: err}
	}
	snap, err := fb.decode(data)
	if err != nil {
		return nil, &BackendError{Backend: "filesystem", Op: "load", Err: err}
	}
	return snap, nil
}

// VerifyIntegrity reloads documentID's snapshot and recomputes its
// chunk checksums.
func (fb *FilesystemBackend) VerifyIntegrity(ctx context.Context, documentID string) (*IntegrityReport, error) {
	snap, err := fb.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return verifySnapshot(snap), nil
}

// Name returns the backend's identifier.
func (fb *FilesystemBackend) Name() string { return "filesystem" }

// Close marks the backend closed; subsequent Save calls fail.
func (fb *FilesystemBackend) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.closed = true
	return nil
}

func (fb *FilesystemBackend) encode(snap *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if !fb.config.Compress {
		return raw, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func (fb *FilesystemBackend) decode(data []byte) (*Snapshot, error) {
	raw := data
	if fb.config.Compress {
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		defer r.Close()
		raw, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// verifySnapshot checksums snap's segment and log-tail chunks against
// what was recorded when it was saved, and checks the snapshot is
// internally consistent: every entry in the log tail is causally
// before the snapshot's own vector.
func verifySnapshot(snap *Snapshot) *IntegrityReport {
	report := &IntegrityReport{
		Timestamp:  time.Now(),
		DocumentID: snap.DocumentID,
		ChunkCount: len(snap.Chunks),
	}

	segData, _ := json.Marshal(snap.Segments)
	logData, _ := json.Marshal(snap.LogTail)
	chunks := map[string][]byte{"segments": segData, "log_tail": logData}
	bad := verifyChunks(chunks, snap.Chunks)

	report.BadChunks = bad
	report.Valid = len(bad) == 0
	report.VectorCheck = checkVectorMonotonic(snap)
	if !report.VectorCheck {
		report.Valid = false
	}
	return report
}

func checkVectorMonotonic(snap *Snapshot) bool {
	limits := make(map[uint16]uint64, len(snap.Vector))
	for _, e := range snap.Vector {
		limits[e.Session] = e.Count
	}
	for _, req := range snap.LogTail {
		for _, e := range req.Vector {
			if e.Count > limits[e.Session] {
				return false
			}
		}
	}
	return true
}
