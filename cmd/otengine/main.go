// Package main provides the otengine CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/willibrandon/otengine/cmd/otengine/commands"
)

var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
