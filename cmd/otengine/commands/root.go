// Package commands implements CLI commands for otengine.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	rootCmd = &cobra.Command{
		Use:   "otengine",
		Short: "Operational transform engine for collaborative text editing",
		Long: `otengine drives a session-tagged document buffer through
concurrent inserts, deletes and undo/redo, transforming each request
against whatever committed concurrently so every session converges on
the same buffer.`,
	}
)

// Execute runs the CLI.
func Execute(v string) error {
	version = v

	rootCmd.AddCommand(
		versionCmd(),
		simulateCmd(),
		replayCmd(),
		verifyCmd(),
	)

	return rootCmd.Execute()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("otengine version %s\n", version)
		},
	}
}
