package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "0.1.0-dev"

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tm version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			version := Version
			if info, ok := debug.ReadBuildInfo(); ok && version == "0.1.0-dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
				version = info.Main.Version
			}
			if jsonOut {
				return writeJSON(out, map[string]string{"version": version})
			}
			_, err := fmt.Fprintf(out, "tm version %s\n", version)
			return err
		},
	}
}
