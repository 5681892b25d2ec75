package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/taskmaster/internal/bootstrap"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize taskmaster in current project",
		Long: `Initialize taskmaster in the current directory (or --project).

Creates .taskmaster/ with config.yaml, state.json and tasks/tasks.json
holding an empty master tag, and adds lock files to .gitignore.

Examples:
  tm init                       # Initialize here
  tm init --name api            # Set the project name
  tm init --force               # Rewrite config and state, keep tasks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			name, _ := cmd.Flags().GetString("name")
			skipGitignore, _ := cmd.Flags().GetBool("skip-gitignore")

			result, err := bootstrap.Run(bootstrap.Options{
				WorkDir:       v.GetString("project"),
				Force:         force,
				ProjectName:   name,
				SkipGitignore: skipGitignore,
				Logger:        slog.Default(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{
					"root":         result.Root,
					"config":       result.ConfigPath,
					"tasks":        result.TasksPath,
					"state":        result.StatePath,
					"createdTasks": result.CreatedTasks,
				})
			}
			if !quiet {
				bootstrap.PrintResult(out, result)
			}
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "reinitialize an existing project")
	cmd.Flags().String("name", "", "project name (default is the directory name)")
	cmd.Flags().Bool("skip-gitignore", false, "do not modify .gitignore")

	return cmd
}
