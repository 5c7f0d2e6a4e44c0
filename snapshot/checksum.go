package snapshot

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// checksum returns the xxHash64 checksum of data.
func checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ChecksumError reports a chunk whose stored checksum does not match
// its recomputed one.
type ChecksumError struct {
	Label    string
	Expected uint64
	Actual   uint64
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("snapshot: checksum mismatch for chunk %q: expected %x, got %x", e.Label, e.Expected, e.Actual)
}

// chunkSummaries computes one ChunkSummary per labelled byte slice,
// in the order given.
func chunkSummaries(chunks map[string][]byte, order []string) []ChunkSummary {
	out := make([]ChunkSummary, 0, len(order))
	for _, label := range order {
		out = append(out, ChunkSummary{Label: label, Checksum: checksum(chunks[label])})
	}
	return out
}

// verifyChunks recomputes the checksum of each labelled chunk and
// compares it against the stored summaries, returning the labels of
// any chunk that fails.
func verifyChunks(chunks map[string][]byte, summaries []ChunkSummary) []string {
	var bad []string
	for _, s := range summaries {
		data, ok := chunks[s.Label]
		if !ok {
			bad = append(bad, s.Label)
			continue
		}
		if checksum(data) != s.Checksum {
			bad = append(bad, s.Label)
		}
	}
	return bad
}
