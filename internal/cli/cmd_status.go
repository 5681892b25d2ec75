package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/taskmaster/internal/task"
)

// newSetStatusCmd creates the set-status command
func newSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set-status <ids> <status>",
		Aliases: []string{"status"},
		Short:   "Set the status of tasks or subtasks",
		Long: `Set the status of one or more tasks or subtasks.

Valid statuses: pending, in-progress, done, review, deferred, cancelled.
Marking a task done also marks its subtasks done.

Examples:
  tm set-status 3 in-progress
  tm set-status 3.1,3.2 done`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 1 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var out []string
			for _, s := range task.ValidStatuses() {
				out = append(out, string(s))
			}
			return out, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args[0])
			if err != nil {
				return err
			}
			if len(refs) == 0 {
				return fmt.Errorf("no task ids given")
			}
			status := task.Status(args[1])
			if !task.IsValidStatus(status) {
				return fmt.Errorf("invalid status %q (valid: %s)", status, joinStatuses())
			}

			p, err := loadProject(true)
			if err != nil {
				return err
			}

			var changed []task.Ref
			err = mutate(p, "set-status", func(td *task.TagData) error {
				changed = changed[:0]
				for _, ref := range refs {
					c, err := task.SetStatus(td, ref, status)
					if err != nil {
						return err
					}
					changed = append(changed, c...)
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if changed == nil {
					changed = []task.Ref{}
				}
				return writeJSON(out, map[string]any{"status": status, "changed": changed})
			}
			if len(changed) == 0 {
				_, _ = fmt.Fprintf(out, "Nothing changed; already %s\n", status)
				return nil
			}
			_, _ = fmt.Fprintf(out, "Set %s to %s\n", formatDeps(changed), status)
			return nil
		},
	}
}
