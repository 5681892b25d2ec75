package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newLockCmd creates the lock command with subcommands.
func newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect or clear the tasks file lock",
		Long: `Inspect or clear the lock that serialises writes to the tasks file.

A lock older than lock.stale_after is reclaimed automatically by the next
writer. 'tm lock clear' removes it immediately.`,
	}

	cmd.AddCommand(newLockStatusCmd())
	cmd.AddCommand(newLockClearCmd())

	return cmd
}

func newLockStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current lock holder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			info, err := p.Locks.Inspect(p.TasksPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{"locked": info != nil, "lock": info})
			}
			if info == nil {
				_, _ = fmt.Fprintf(out, "%s is not locked\n", p.TasksPath)
				return nil
			}

			pr := newPrinter(out)
			pr.printf("%s %s\n", pr.header("Locked:"), info.Path)
			if info.PID > 0 {
				alive := "not running"
				if info.HolderAlive {
					alive = "running"
				}
				pr.printf("  PID:      %d (%s)\n", info.PID, alive)
			}
			if info.Owner != "" {
				pr.printf("  Owner:    %s\n", info.Owner)
			}
			pr.printf("  Acquired: %s (%s ago)\n", info.Acquired.Format(time.RFC3339), info.Age.Round(time.Millisecond))
			if info.Stale {
				pr.printf("  Stale:    yes, the next writer will reclaim it\n")
			}
			return nil
		},
	}
}

func newLockClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the lock regardless of holder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			removed, err := p.Locks.ForceRelease(p.TasksPath)
			if err != nil {
				return err
			}
			if removed {
				return report(cmd, map[string]any{"cleared": true}, "Lock cleared\n")
			}
			return report(cmd, map[string]any{"cleared": false}, "No lock to clear\n")
		},
	}
}
