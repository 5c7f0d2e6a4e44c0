package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willibrandon/otengine/op"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/snapshot"
	"github.com/willibrandon/otengine/vector"
)

// TestSnapshotStoreRoundTrip drives an engine configured with a
// filesystem snapshot store through two commits and checks the
// persisted snapshot restores to the same document.
func TestSnapshotStoreRoundTrip(t *testing.T) {
	backend, err := snapshot.NewFilesystemBackend(snapshot.FilesystemConfig{Path: t.TempDir()})
	require.NoError(t, err)
	defer backend.Close()

	e := New(WithSnapshotStore(backend, "doc", 1))

	mustSubmit(t, e, request.Do{
		UserID:    userA,
		Vec:       vector.New(),
		Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(userA, []byte("hello"))},
	})
	mustSubmit(t, e, request.Do{
		UserID:    userB,
		Vec:       vector.FromMap(map[vector.SessionID]uint64{userA: 1}),
		Operation: op.Insert{Position: 5, Buffer: segment.FromBytes(userB, []byte(" world"))},
	})

	snap, err := backend.Load(context.Background(), "doc")
	require.NoError(t, err)

	buf := snapshot.DecodeBuffer(snap.Segments)
	require.Equal(t, "hello world", string(buf.Bytes()))

	vec := snapshot.DecodeVector(snap.Vector)
	require.True(t, vec.Equal(e.CurrentVector()), "persisted vector must match the engine's")

	entries := make([]request.Request, 0, len(snap.LogTail))
	for _, dto := range snap.LogTail {
		r, err := snapshot.DecodeRequest(dto)
		require.NoError(t, err)
		entries = append(entries, r)
	}
	restored := Restore(buf, vec, entries)
	require.Equal(t, e.LogLen(), restored.LogLen())
	require.Equal(t, string(e.CurrentBuffer().Bytes()), string(restored.CurrentBuffer().Bytes()))

	report, err := backend.VerifyIntegrity(context.Background(), "doc")
	require.NoError(t, err)
	require.True(t, report.Valid)
}

// TestSnapshotStoreHonoursCommitInterval checks that no snapshot is
// written until everyCommits commits have accumulated.
func TestSnapshotStoreHonoursCommitInterval(t *testing.T) {
	backend, err := snapshot.NewFilesystemBackend(snapshot.FilesystemConfig{Path: t.TempDir()})
	require.NoError(t, err)
	defer backend.Close()

	e := New(WithSnapshotStore(backend, "doc", 2))

	mustSubmit(t, e, request.Do{
		UserID:    userA,
		Vec:       vector.New(),
		Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(userA, []byte("a"))},
	})
	_, err = backend.Load(context.Background(), "doc")
	require.Error(t, err, "no snapshot should exist after one commit with everyCommits=2")

	mustSubmit(t, e, request.Do{
		UserID:    userA,
		Vec:       vector.FromMap(map[vector.SessionID]uint64{userA: 1}),
		Operation: op.Insert{Position: 1, Buffer: segment.FromBytes(userA, []byte("b"))},
	})
	snap, err := backend.Load(context.Background(), "doc")
	require.NoError(t, err)
	require.Equal(t, "ab", string(snapshot.DecodeBuffer(snap.Segments).Bytes()))
}
