package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo holds version information injected at build time.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("reagentmatch %s\n  commit: %s\n  built:  %s\n  go:     %s\n", b.Version, b.Commit, b.BuildDate, b.GoVersion)
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, BuildInfo{
				Version:   Version,
				Commit:    GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
			})
		},
	}
}
