package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/taskmaster/internal/task"
)

// newRemoveTaskCmd creates the remove-task command
func newRemoveTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove-task <ids>",
		Aliases: []string{"rm"},
		Short:   "Remove tasks or subtasks",
		Long: `Remove tasks (and their subtasks) or subtasks from the current tag.

Every dependency on a removed task or subtask is dropped from the tag.

Examples:
  tm remove-task 4
  tm remove-task 4,5.2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args[0])
			if err != nil {
				return err
			}
			if len(refs) == 0 {
				return fmt.Errorf("no task ids given")
			}

			p, err := loadProject(true)
			if err != nil {
				return err
			}

			var removed []task.Ref
			err = mutate(p, "remove-task", func(td *task.TagData) error {
				removed = removed[:0]
				for _, ref := range refs {
					if ref.IsSubtask() {
						if _, err := task.RemoveSubtask(td, ref.String(), false); err != nil {
							return err
						}
					} else if _, err := task.RemoveTask(td, ref.ID); err != nil {
						return err
					}
					removed = append(removed, ref)
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{"removed": removed})
			}
			_, _ = fmt.Fprintf(out, "Removed %s from %s\n", formatDeps(removed), p.Tag)
			return nil
		},
	}
}

// newRemoveSubtaskCmd creates the remove-subtask command
func newRemoveSubtaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-subtask <parent.sub>",
		Short: "Remove a subtask, optionally converting it to a task",
		Long: `Remove a subtask from its parent.

With --convert the subtask becomes a new top-level task with the next free
id, the parent's priority and a dependency on the former parent.

Examples:
  tm remove-subtask 3.2
  tm remove-subtask 3.2 --convert`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			convert, _ := cmd.Flags().GetBool("convert")
			if _, err := task.ParseSubtaskRef(args[0]); err != nil {
				return err
			}

			p, err := loadProject(true)
			if err != nil {
				return err
			}

			var converted *task.Task
			err = mutate(p, "remove-subtask", func(td *task.TagData) error {
				t, err := task.RemoveSubtask(td, args[0], convert)
				if err != nil {
					return err
				}
				if t != nil {
					c := t.Clone()
					converted = &c
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{"removed": args[0], "convertedTo": converted})
			}
			if converted != nil {
				_, _ = fmt.Fprintf(out, "Converted subtask %s to task %d: %s\n", args[0], converted.ID, converted.Title)
				return nil
			}
			_, _ = fmt.Fprintf(out, "Removed subtask %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().Bool("convert", false, "convert the subtask into a top-level task")

	return cmd
}

// newClearSubtasksCmd creates the clear-subtasks command
func newClearSubtasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-subtasks [ids]",
		Short: "Remove all subtasks from tasks",
		Long: `Remove every subtask from the given tasks, or from all tasks with --all.

Examples:
  tm clear-subtasks 3,4
  tm clear-subtasks --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			var ids []int
			switch {
			case all && len(args) > 0:
				return fmt.Errorf("give task ids or --all, not both")
			case len(args) == 1:
				var err error
				if ids, err = parseIDs(args[0]); err != nil {
					return err
				}
				if len(ids) == 0 {
					return fmt.Errorf("no task ids given")
				}
			case !all:
				return fmt.Errorf("give task ids or --all")
			}

			p, err := loadProject(true)
			if err != nil {
				return err
			}

			var count int
			err = mutate(p, "clear-subtasks", func(td *task.TagData) error {
				var err error
				count, err = task.ClearSubtasks(td, ids)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{"cleared": count})
			}
			_, _ = fmt.Fprintf(out, "Cleared %d subtasks\n", count)
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "clear subtasks from every task")

	return cmd
}
