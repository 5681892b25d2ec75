package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/taskmaster/internal/task"
)

// newNextCmd creates the next command
func newNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next task to work on",
		Long: `Show the next available task or subtask.

Subtasks of in-progress tasks come first. A candidate must be pending or
in-progress with every dependency done or cancelled; ties break on
priority, fewer dependencies, then lower id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			td, err := loadTag(p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			item, ok := task.NextTask(td.Tasks)
			if jsonOut {
				if !ok {
					return writeJSON(out, map[string]any{"next": nil})
				}
				return writeJSON(out, map[string]any{"next": map[string]any{
					"id":           item.Ref,
					"title":        item.Title,
					"status":       item.Status,
					"priority":     item.Priority,
					"dependencies": item.Dependencies,
				}})
			}
			if !ok {
				_, _ = fmt.Fprintln(out, "No eligible task. Everything is done, blocked or deferred.")
				return nil
			}

			pr := newPrinter(out)
			kind := "Task"
			if item.Ref.IsSubtask() {
				kind = "Subtask"
			}
			pr.printf("%s %s\n", pr.header("Next "+kind+" "+item.Ref.String()+":"), item.Title)
			pr.printf("Status:    %s\n", pr.status(item.Status))
			pr.printf("Priority:  %s\n", pr.priority(item.Priority))
			pr.printf("Depends:   %s\n", formatDeps(item.Dependencies))
			if !quiet {
				pr.printf("\nStart it with: tm set-status %s in-progress\n", item.Ref)
			}
			return nil
		},
	}
}
