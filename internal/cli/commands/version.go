package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/autodash/pkg/adapter"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the autodash version, Go runtime and registered warehouse adapters.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "autodash v%s\n", version)
			_, _ = fmt.Fprintf(w, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintf(w, "adapters: %s\n", strings.Join(adapter.ListAdapters(), ", "))
		},
	}
}
