package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/taskmaster/internal/bootstrap"
	"github.com/randalmurphal/taskmaster/internal/project"
	"github.com/randalmurphal/taskmaster/internal/task"
)

// newTagsCmd creates the tags command with subcommands.
func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag"},
		Short:   "Manage tags",
		Long: `Manage tags: independent task lists stored in one tasks file.

Subcommands:
  list     List tags with task counts
  add      Create an empty tag
  copy     Copy a tag's tasks into a new tag
  rename   Rename a tag
  delete   Delete an empty, inactive tag
  use      Switch the current tag

Examples:
  tm tags list
  tm tags list --match 'feature-*'
  tm tags add feature-x --description "Feature X work"
  tm tags use feature-x`,
	}

	cmd.AddCommand(newTagsListCmd())
	cmd.AddCommand(newTagsAddCmd())
	cmd.AddCommand(newTagsCopyCmd())
	cmd.AddCommand(newTagsRenameCmd())
	cmd.AddCommand(newTagsDeleteCmd())
	cmd.AddCommand(newTagsUseCmd())

	return cmd
}

// currentTagOf returns the recorded current tag, which --tag does not
// override.
func currentTagOf(p *bootstrap.Project) string {
	tag, err := p.CurrentTag()
	if err != nil {
		p.Logger.Warn("cannot read current tag", "error", err)
		return p.Config.Config.DefaultTag
	}
	return tag
}

func newTagsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tags",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			match, _ := cmd.Flags().GetString("match")

			p, err := loadProject(true)
			if err != nil {
				return err
			}
			doc, err := p.Store.Document()
			if err != nil {
				return err
			}
			if doc == nil {
				doc = task.NewDocument()
			}
			infos, err := task.ListTags(doc, currentTagOf(p), match)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if infos == nil {
					infos = []task.TagInfo{}
				}
				return writeJSON(out, map[string]any{"tags": infos})
			}
			if len(infos) == 0 {
				_, _ = fmt.Fprintln(out, "No tags found.")
				return nil
			}

			pr := newPrinter(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "\tTAG\tTASKS\tDONE\tDESCRIPTION")
			for _, info := range infos {
				marker := ""
				name := info.Name
				if info.Current {
					marker = "*"
					name = pr.header(name)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", marker, name, info.TaskCount, info.Completed,
					truncate(info.Description, max(pr.width-50, 20)))
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("match", "", "only list tags matching this glob")

	return cmd
}

func newTagsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an empty tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			err = p.Store.UpdateDocument(func(doc *task.Document) error {
				return task.AddTag(doc, args[0], description)
			})
			if err != nil {
				return err
			}
			recordSession(p, "tags add", map[string]any{"name": args[0]})
			return report(cmd, map[string]any{"added": args[0]}, "Created tag %s\n", args[0])
		},
	}
	cmd.Flags().StringP("description", "d", "", "tag description")
	return cmd
}

func newTagsCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <source> <target>",
		Short: "Copy a tag's tasks into a new tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			err = p.Store.UpdateDocument(func(doc *task.Document) error {
				return task.CopyTag(doc, args[0], args[1], description)
			})
			if err != nil {
				return err
			}
			recordSession(p, "tags copy", map[string]any{"from": args[0], "to": args[1]})
			return report(cmd, map[string]any{"copied": args[0], "to": args[1]}, "Copied tag %s to %s\n", args[0], args[1])
		},
	}
	cmd.Flags().StringP("description", "d", "", "description of the new tag")
	return cmd
}

func newTagsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a tag",
		Long: `Rename a tag. Renaming the current tag moves the current-tag pointer,
and the tag's complexity report is renamed with it. master cannot be renamed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := args[0], args[1]
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			current := currentTagOf(p)
			next := current
			err = p.Store.UpdateDocument(func(doc *task.Document) error {
				var err error
				next, err = task.RenameTag(doc, from, to, current)
				return err
			})
			if err != nil {
				return err
			}
			if next != current {
				if err := p.State.SetCurrentTag(next); err != nil {
					return err
				}
			}
			moveReport(p, from, to)
			recordSession(p, "tags rename", map[string]any{"from": from, "to": to})
			return report(cmd, map[string]any{"renamed": from, "to": to, "currentTag": next}, "Renamed tag %s to %s\n", from, to)
		},
	}
}

func newTagsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an empty tag",
		Long: `Delete a tag. The tag must have no tasks and must not be the current
tag; master cannot be deleted. The tag's complexity report is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			current := currentTagOf(p)
			err = p.Store.UpdateDocument(func(doc *task.Document) error {
				return task.DeleteTag(doc, name, current)
			})
			if err != nil {
				return err
			}
			removeReport(p, name)
			recordSession(p, "tags delete", map[string]any{"name": name})
			return report(cmd, map[string]any{"deleted": name}, "Deleted tag %s\n", name)
		},
	}
}

func newTagsUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Switch the current tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			doc, err := p.Store.Document()
			if err != nil {
				return err
			}
			if doc == nil {
				doc = task.NewDocument()
			}
			if err := task.UseTag(doc, name); err != nil {
				return err
			}
			if err := p.State.SetCurrentTag(name); err != nil {
				return err
			}
			recordSession(p, "tags use", map[string]any{"name": name})
			return report(cmd, map[string]any{"currentTag": name, "taskCount": doc.TaskCount(name)},
				"Switched to tag %s (%d tasks)\n", name, doc.TaskCount(name))
		},
	}
}

// moveReport renames the complexity report of a renamed tag, if there is one.
func moveReport(p *bootstrap.Project, from, to string) {
	src := project.ComplexityReportPath(p.Root, from)
	dst := project.ComplexityReportPath(p.Root, to)
	if err := os.Rename(src, dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.Logger.Warn("could not rename complexity report", "from", src, "to", dst, "error", err)
	}
}

// removeReport deletes the complexity report of a deleted tag, if there is one.
func removeReport(p *bootstrap.Project, tag string) {
	path := project.ComplexityReportPath(p.Root, tag)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.Logger.Warn("could not remove complexity report", "path", path, "error", err)
	}
}

func recordSession(p *bootstrap.Project, command string, details map[string]any) {
	if err := p.RecordSession(command, details); err != nil {
		p.Logger.Warn("could not record session", "error", err)
	}
}

// report writes v as JSON under --json, otherwise the formatted message.
func report(cmd *cobra.Command, v any, format string, args ...any) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		return writeJSON(out, v)
	}
	if quiet {
		return nil
	}
	_, err := fmt.Fprintf(out, format, args...)
	return err
}
