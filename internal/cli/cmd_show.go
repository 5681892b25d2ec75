package cli

import (
	"strings"

	"github.com/spf13/cobra"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
	"github.com/randalmurphal/taskmaster/internal/task"
)

// newShowCmd creates the show command
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show task or subtask details",
		Long: `Show a task or subtask with its dependencies.

Examples:
  tm show 3        # Task 3 and its subtasks
  tm show 3.2      # Subtask 2 of task 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := task.ParseRef(args[0])
			if err != nil {
				return err
			}

			p, err := loadProject(true)
			if err != nil {
				return err
			}
			td, err := loadTag(p)
			if err != nil {
				return err
			}

			t := task.FindTask(td.Tasks, ref.ID)
			if t == nil {
				return tmerrors.TaskNotFound(ref.String())
			}
			out := cmd.OutOrStdout()

			if ref.IsSubtask() {
				s := t.FindSubtask(ref.Sub)
				if s == nil {
					return tmerrors.SubtaskNotFound(ref.ID, ref.Sub)
				}
				if jsonOut {
					return writeJSON(out, s)
				}
				printSubtask(newPrinter(out), td.Tasks, t, s)
				return nil
			}

			if jsonOut {
				return writeJSON(out, t)
			}
			printTask(newPrinter(out), td.Tasks, t)
			return nil
		},
	}
}

func printTask(pr *printer, tasks []task.Task, t *task.Task) {
	pr.printf("%s %s\n", pr.header("Task "+t.Ref().String()+":"), t.Title)
	pr.printf("%s\n", pr.separator(40))
	pr.printf("Status:    %s\n", pr.status(t.Status))
	pr.printf("Priority:  %s\n", pr.priority(t.EffectivePriority()))
	pr.printf("Depends:   %s\n", describeDeps(pr, tasks, t.Ref(), t.Dependencies))
	printText(pr, "Description", t.Description)
	printText(pr, "Details", t.Details)
	printText(pr, "Test strategy", t.TestStrategy)

	if len(t.Subtasks) == 0 {
		return
	}
	done := 0
	for _, s := range t.Subtasks {
		if s.Status.IsComplete() {
			done++
		}
	}
	pr.printf("\n%s (%d/%d complete)\n", pr.header("Subtasks"), done, len(t.Subtasks))
	for _, s := range t.Subtasks {
		pr.printf("  %-6s %s  %s\n", s.Ref(t.ID).String(), pr.status(s.Status), truncate(s.Title, max(pr.width-30, 20)))
	}
}

func printSubtask(pr *printer, tasks []task.Task, parent *task.Task, s *task.Subtask) {
	ref := s.Ref(parent.ID)
	pr.printf("%s %s\n", pr.header("Subtask "+ref.String()+":"), s.Title)
	pr.printf("%s\n", pr.separator(40))
	pr.printf("Parent:    %d (%s)\n", parent.ID, parent.Title)
	pr.printf("Status:    %s\n", pr.status(s.Status))
	pr.printf("Depends:   %s\n", describeDeps(pr, tasks, ref, s.Dependencies))
	printText(pr, "Description", s.Description)
	printText(pr, "Details", s.Details)
	printText(pr, "Test strategy", s.TestStrategy)
}

// describeDeps lists each dependency with its status. Missing ones are
// marked.
func describeDeps(pr *printer, tasks []task.Task, owner task.Ref, deps []task.Ref) string {
	if len(deps) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(deps))
	for _, dep := range deps {
		resolved := task.ResolveDep(tasks, owner, dep)
		item, ok := task.Lookup(tasks, resolved)
		if !ok {
			parts = append(parts, resolved.String()+" (missing)")
			continue
		}
		parts = append(parts, resolved.String()+" "+statusIcon(item.Status))
	}
	return strings.Join(parts, ", ")
}

func printText(pr *printer, label, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	pr.printf("\n%s:\n%s\n", label, text)
}
