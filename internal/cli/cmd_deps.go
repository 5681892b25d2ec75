package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/taskmaster/internal/deps"
	"github.com/randalmurphal/taskmaster/internal/task"
)

// errNothingToFix aborts a fix update so an unchanged file is not rewritten.
var errNothingToFix = errors.New("nothing to fix")

// newAddDependencyCmd creates the add-dependency command
func newAddDependencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-dependency",
		Short: "Make a task depend on another",
		Long: `Add a dependency edge. Both ids must exist, the edge must be new, and it
must not close a cycle.

Examples:
  tm add-dependency --id 5 --depends-on 3
  tm add-dependency --id 5.2 --depends-on 5.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := edgeFlags(cmd)
			if err != nil {
				return err
			}
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			err = mutate(p, "add-dependency", func(td *task.TagData) error {
				return deps.AddDependency(td, from, to)
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{"added": map[string]task.Ref{"from": from, "to": to}})
			}
			_, _ = fmt.Fprintf(out, "%s now depends on %s\n", from, to)
			return nil
		},
	}
	addEdgeFlags(cmd)
	return cmd
}

// newRemoveDependencyCmd creates the remove-dependency command
func newRemoveDependencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-dependency",
		Short: "Remove a dependency between tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := edgeFlags(cmd)
			if err != nil {
				return err
			}
			p, err := loadProject(true)
			if err != nil {
				return err
			}
			err = mutate(p, "remove-dependency", func(td *task.TagData) error {
				return deps.RemoveDependency(td, from, to)
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{"removed": map[string]task.Ref{"from": from, "to": to}})
			}
			_, _ = fmt.Fprintf(out, "%s no longer depends on %s\n", from, to)
			return nil
		},
	}
	addEdgeFlags(cmd)
	return cmd
}

func addEdgeFlags(cmd *cobra.Command) {
	cmd.Flags().String("id", "", "task or subtask that has the dependency (required)")
	cmd.Flags().String("depends-on", "", "task or subtask depended on (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("depends-on")
}

func edgeFlags(cmd *cobra.Command) (task.Ref, task.Ref, error) {
	id, _ := cmd.Flags().GetString("id")
	dependsOn, _ := cmd.Flags().GetString("depends-on")
	from, err := task.ParseRef(id)
	if err != nil {
		return task.Ref{}, task.Ref{}, err
	}
	to, err := task.ParseRef(dependsOn)
	if err != nil {
		return task.Ref{}, task.Ref{}, err
	}
	return from, to, nil
}

// newValidateDependenciesCmd creates the validate-dependencies command
func newValidateDependenciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-dependencies",
		Short: "Report dependency problems without changing anything",
		Long: `Report self-dependencies, duplicates, references to missing tasks and
cycles, along with task fields that hold illegal values (duplicate ids,
unknown statuses or priorities). Exits non-zero when problems are found.

Examples:
  tm validate-dependencies
  tm validate-dependencies --all-tags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			allTags, _ := cmd.Flags().GetBool("all-tags")

			p, err := loadProject(true)
			if err != nil {
				return err
			}

			result := make(map[string][]deps.Issue)
			fields := make(map[string][]task.FieldProblem)
			if allTags {
				doc, err := p.Store.Document()
				if err != nil {
					return err
				}
				if doc != nil {
					if result, err = deps.ValidateAll(cmd.Context(), doc); err != nil {
						return err
					}
					for _, tag := range doc.Tags() {
						td, err := doc.Get(tag)
						if err != nil {
							return err
						}
						if problems := task.CheckFields(td.Tasks); len(problems) > 0 {
							fields[tag] = problems
						}
					}
				}
			} else {
				td, err := loadTag(p)
				if err != nil {
					return err
				}
				if issues := deps.Validate(td.Tasks); len(issues) > 0 {
					result[p.Tag] = issues
				}
				if problems := task.CheckFields(td.Tasks); len(problems) > 0 {
					fields[p.Tag] = problems
				}
			}

			total, fieldTotal := 0, 0
			for _, issues := range result {
				total += len(issues)
			}
			for _, problems := range fields {
				fieldTotal += len(problems)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				payload := map[string]any{"valid": total+fieldTotal == 0, "issues": result}
				if fieldTotal > 0 {
					payload["fields"] = fields
				}
				if err := writeJSON(out, payload); err != nil {
					return err
				}
			} else if total+fieldTotal == 0 {
				_, _ = fmt.Fprintln(out, "All dependencies are valid.")
			} else {
				pr := newPrinter(out)
				for _, tag := range sortedKeys(result, fields) {
					pr.printf("%s\n", pr.header(tag))
					for _, issue := range result[tag] {
						pr.printf("  %s\n", issue)
					}
					for _, problem := range fields[tag] {
						pr.printf("  field %s\n", problem)
					}
				}
				if !quiet && total > 0 {
					pr.printf("\nRun 'tm fix-dependencies' to remove invalid references. Cycles must be broken by hand.\n")
				}
			}
			switch {
			case total > 0:
				return fmt.Errorf("found %d dependency issues", total)
			case fieldTotal > 0:
				return fmt.Errorf("found %d invalid task fields", fieldTotal)
			}
			return nil
		},
	}

	cmd.Flags().Bool("all-tags", false, "validate every tag")

	return cmd
}

// newFixDependenciesCmd creates the fix-dependencies command
func newFixDependenciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix-dependencies",
		Short: "Remove invalid dependency references",
		Long: `Remove self-dependencies, duplicates and references to missing tasks.
Cycles are reported by validate-dependencies but not broken.

Examples:
  tm fix-dependencies
  tm fix-dependencies --all-tags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			allTags, _ := cmd.Flags().GetBool("all-tags")

			p, err := loadProject(true)
			if err != nil {
				return err
			}

			var changed bool
			if allTags {
				err = p.Store.UpdateDocument(func(doc *task.Document) error {
					changed = deps.ValidateAndFix(doc)
					if !changed {
						return errNothingToFix
					}
					return nil
				})
			} else {
				err = mutate(p, "fix-dependencies", func(td *task.TagData) error {
					changed = deps.ValidateAndFix(td)
					if !changed {
						return errNothingToFix
					}
					return nil
				})
			}
			if err != nil && !errors.Is(err, errNothingToFix) {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{"changed": changed})
			}
			if !changed {
				_, _ = fmt.Fprintln(out, "No invalid dependencies found.")
				return nil
			}
			_, _ = fmt.Fprintln(out, "Removed invalid dependencies.")
			return nil
		},
	}

	cmd.Flags().Bool("all-tags", false, "fix every tag")

	return cmd
}

// sortedKeys returns the tags present in either report, sorted.
func sortedKeys(issues map[string][]deps.Issue, fields map[string][]task.FieldProblem) []string {
	seen := make(map[string]bool, len(issues)+len(fields))
	for tag := range issues {
		seen[tag] = true
	}
	for tag := range fields {
		seen[tag] = true
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
