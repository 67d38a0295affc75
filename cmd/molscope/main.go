// Command molscope is the single entry point for the Molscope server and
// its local tooling.
package main

import (
	"os"

	"github.com/molscope/molscope/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// Execute prints the failure before returning, so exit without
	// repeating it.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
