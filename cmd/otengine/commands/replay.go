package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willibrandon/otengine/engine"
	"github.com/willibrandon/otengine/internal/logger"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/snapshot"
)

func replayCmd() *cobra.Command {
	var (
		path       string
		documentID string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a persisted snapshot and print the resulting buffer",
		Long: `replay loads a document snapshot from a filesystem snapshot store
and rebuilds an Engine from its (buffer, vector, log) triple, printing
the final buffer contents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(path, documentID)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "snapshot store directory (required)")
	cmd.Flags().StringVar(&documentID, "document", "", "document id to replay (required)")
	cmd.MarkFlagRequired("path")
	cmd.MarkFlagRequired("document")

	return cmd
}

func runReplay(path, documentID string) error {
	backend, err := snapshot.NewFilesystemBackend(snapshot.FilesystemConfig{Path: path})
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer backend.Close()

	ctx := context.Background()
	snap, err := backend.Load(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	buf := snapshot.DecodeBuffer(snap.Segments)
	vec := snapshot.DecodeVector(snap.Vector)

	entries := make([]request.Request, 0, len(snap.LogTail))
	for _, dto := range snap.LogTail {
		req, err := snapshot.DecodeRequest(dto)
		if err != nil {
			return fmt.Errorf("failed to decode log entry: %w", err)
		}
		entries = append(entries, req)
	}

	e := engine.Restore(buf, vec, entries)

	logger.Log.Info("replay: document={Document} log entries={Count}", documentID, e.LogLen())
	fmt.Printf("buffer: %q\n", string(e.CurrentBuffer().Bytes()))
	fmt.Printf("vector: %v\n", snapshot.EncodeVector(e.CurrentVector()))
	return nil
}
