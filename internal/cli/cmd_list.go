package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/taskmaster/internal/bootstrap"
	"github.com/randalmurphal/taskmaster/internal/task"
)

// newListCmd creates the list command
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long: `List the tasks of the current tag.

Example:
  tm list
  tm list --status pending,in-progress
  tm list --with-subtasks
  tm list --tag feature-x
  tm list --tag-glob 'feature-*'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			statusFilter, _ := cmd.Flags().GetString("status")
			withSubtasks, _ := cmd.Flags().GetBool("with-subtasks")
			tagGlob, _ := cmd.Flags().GetString("tag-glob")

			filter, err := parseStatusFilter(statusFilter)
			if err != nil {
				return err
			}

			p, err := loadProject(true)
			if err != nil {
				return err
			}

			tags := []string{p.Tag}
			byTag := make(map[string]*task.TagData)
			if tagGlob != "" {
				if tags, err = loadMatchingTags(p, tagGlob, byTag); err != nil {
					return err
				}
			} else {
				td, err := loadTag(p)
				if err != nil {
					return err
				}
				byTag[p.Tag] = td
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				result := make(map[string][]task.Task, len(tags))
				for _, tag := range tags {
					result[tag] = filterTasks(byTag[tag].Tasks, filter)
				}
				if tagGlob == "" {
					return writeJSON(out, map[string]any{"tag": p.Tag, "tasks": result[p.Tag]})
				}
				return writeJSON(out, map[string]any{"tags": result})
			}

			if len(tags) == 0 {
				_, _ = fmt.Fprintf(out, "No tags match %q.\n", tagGlob)
				return nil
			}
			pr := newPrinter(out)
			for i, tag := range tags {
				if i > 0 {
					_, _ = fmt.Fprintln(out)
				}
				if err := printTaskTable(out, pr, tag, byTag[tag], filter, withSubtasks); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("status", "s", "", "only show tasks with these statuses (comma-separated)")
	cmd.Flags().Bool("with-subtasks", false, "include subtasks")
	cmd.Flags().String("tag-glob", "", "list every tag matching this glob")

	return cmd
}

func loadMatchingTags(p *bootstrap.Project, glob string, byTag map[string]*task.TagData) ([]string, error) {
	doc, err := p.Store.Document()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	infos, err := task.ListTags(doc, p.Tag, glob)
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(infos))
	for _, info := range infos {
		td, err := doc.Get(info.Name)
		if err != nil {
			return nil, err
		}
		byTag[info.Name] = td
		tags = append(tags, info.Name)
	}
	return tags, nil
}

func printTaskTable(out io.Writer, pr *printer, tag string, td *task.TagData, filter map[task.Status]bool, withSubtasks bool) error {
	tasks := filterTasks(td.Tasks, filter)
	if len(tasks) == 0 {
		_, _ = fmt.Fprintf(out, "No tasks in tag %q. Create one with: tm add-task --title \"Your task\"\n", tag)
		return nil
	}

	titleWidth := max(pr.width-60, 20)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDEPS\tTITLE")
	_, _ = fmt.Fprintln(w, "──\t──────\t────────\t────\t─────")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			pr.id(t.Ref().String()), pr.status(t.Status), pr.priority(t.EffectivePriority()),
			formatDeps(t.Dependencies), truncate(t.Title, titleWidth))
		if !withSubtasks {
			continue
		}
		for _, s := range t.Subtasks {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t\t%s\t%s\n",
				pr.id(s.Ref(t.ID).String()), pr.status(s.Status),
				formatDeps(s.Dependencies), truncate(s.Title, titleWidth-2))
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if quiet {
		return nil
	}
	top, sub := task.Count(td.Tasks)
	done := 0
	for _, t := range td.Tasks {
		if t.Status == task.StatusDone {
			done++
		}
	}
	_, _ = fmt.Fprintf(out, "\n%s: %d tasks (%d done), %d subtasks\n", pr.header(tag), top, done, sub)
	return nil
}

func parseStatusFilter(s string) (map[task.Status]bool, error) {
	if s == "" {
		return nil, nil
	}
	filter := make(map[task.Status]bool)
	for _, part := range strings.Split(s, ",") {
		st := task.Status(strings.TrimSpace(part))
		if !task.IsValidStatus(st) {
			return nil, fmt.Errorf("invalid status %q (valid: %s)", st, joinStatuses())
		}
		filter[st] = true
	}
	return filter, nil
}

func filterTasks(tasks []task.Task, filter map[task.Status]bool) []task.Task {
	if filter == nil {
		return tasks
	}
	out := []task.Task{}
	for _, t := range tasks {
		if filter[t.Status] {
			out = append(out, t)
		}
	}
	return out
}

func joinStatuses() string {
	var names []string
	for _, s := range task.ValidStatuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
