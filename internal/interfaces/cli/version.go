package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// buildInfo is the version command's printable result.
type buildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (b buildInfo) String() string {
	return fmt.Sprintf("molscope %s\n  commit:     %s\n  built:      %s\n  go version: %s\n  platform:   %s",
		b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
}

func (b buildInfo) TableHeaders() []string {
	return []string{"VERSION", "COMMIT", "BUILT", "GO", "PLATFORM"}
}

func (b buildInfo) TableRows() [][]string {
	return [][]string{{b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform}}
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildInfo{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			return PrintResult(cmd, info)
		},
	}
}
