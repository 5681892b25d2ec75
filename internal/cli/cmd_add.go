package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/taskmaster/internal/task"
)

// newAddTaskCmd creates the add-task command
func newAddTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-task",
		Short: "Add a task to the current tag",
		Long: `Add a top-level task with the next free id.

Examples:
  tm add-task --title "Set up CI"
  tm add-task --title "Deploy" --dependencies 1,2 --priority high
  tm add-task --title "Docs" --tag feature-x`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			details, _ := cmd.Flags().GetString("details")
			testStrategy, _ := cmd.Flags().GetString("test-strategy")
			priority, _ := cmd.Flags().GetString("priority")
			status, _ := cmd.Flags().GetString("status")
			depList, _ := cmd.Flags().GetString("dependencies")

			deps, err := parseRefs(depList)
			if err != nil {
				return err
			}

			p, err := loadProject(true)
			if err != nil {
				return err
			}
			if priority == "" {
				priority = p.Config.Config.DefaultPriority
			}

			var added task.Task
			err = mutate(p, "add-task", func(td *task.TagData) error {
				t, err := task.AddTask(td, task.TaskInput{
					Title:        title,
					Description:  description,
					Details:      details,
					TestStrategy: testStrategy,
					Status:       task.Status(status),
					Priority:     task.Priority(priority),
					Dependencies: deps,
				})
				if err != nil {
					return err
				}
				added = t.Clone()
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, added)
			}
			_, _ = fmt.Fprintf(out, "Added task %d to %s: %s\n", added.ID, p.Tag, added.Title)
			return nil
		},
	}

	cmd.Flags().StringP("title", "t", "", "task title (required)")
	cmd.Flags().StringP("description", "d", "", "task description")
	cmd.Flags().String("details", "", "implementation details")
	cmd.Flags().String("test-strategy", "", "how the task will be verified")
	cmd.Flags().StringP("priority", "p", "", "priority: high, medium, low (default from config)")
	cmd.Flags().String("status", "", "initial status (default pending)")
	cmd.Flags().String("dependencies", "", "comma-separated ids this task depends on")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// newAddSubtaskCmd creates the add-subtask command
func newAddSubtaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-subtask <parent-id>",
		Short: "Add a subtask to a task",
		Long: `Add a subtask to a parent task with the next free subtask id.

Inside a subtask a plain dependency id names a sibling subtask when the
parent has one with that id; otherwise it names a top-level task.

Examples:
  tm add-subtask 3 --title "Write migration"
  tm add-subtask 3 --title "Backfill" --dependencies 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := strconv.Atoi(args[0])
			if err != nil || parentID <= 0 {
				return fmt.Errorf("invalid parent id %q", args[0])
			}
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			details, _ := cmd.Flags().GetString("details")
			testStrategy, _ := cmd.Flags().GetString("test-strategy")
			status, _ := cmd.Flags().GetString("status")
			depList, _ := cmd.Flags().GetString("dependencies")

			deps, err := parseRefs(depList)
			if err != nil {
				return err
			}

			p, err := loadProject(true)
			if err != nil {
				return err
			}

			var added task.Subtask
			err = mutate(p, "add-subtask", func(td *task.TagData) error {
				s, err := task.AddSubtask(td, parentID, task.SubtaskInput{
					Title:        title,
					Description:  description,
					Details:      details,
					TestStrategy: testStrategy,
					Status:       task.Status(status),
					Dependencies: deps,
				})
				if err != nil {
					return err
				}
				added = *s
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, added)
			}
			_, _ = fmt.Fprintf(out, "Added subtask %s: %s\n", added.Ref(parentID), added.Title)
			return nil
		},
	}

	cmd.Flags().StringP("title", "t", "", "subtask title (required)")
	cmd.Flags().StringP("description", "d", "", "subtask description")
	cmd.Flags().String("details", "", "implementation details")
	cmd.Flags().String("test-strategy", "", "how the subtask will be verified")
	cmd.Flags().String("status", "", "initial status (default pending)")
	cmd.Flags().String("dependencies", "", "comma-separated ids this subtask depends on")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}
