// Package logger provides the structured logger shared by the engine
// and its snapshot/CLI layers.
package logger

import (
	"github.com/willibrandon/mtlog"
	"github.com/willibrandon/mtlog/core"
)

// Log is the package-level logger used for engine diagnostics:
// malformed undo/redo drops, reachability refusals and snapshot
// events.
var Log core.Logger

func init() {
	Log = mtlog.New(
		mtlog.WithConsole(),
		mtlog.WithMinimumLevel(core.InformationLevel),
	)
}
