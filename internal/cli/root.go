// Package cli implements the tm command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/taskmaster/internal/bootstrap"
	"github.com/randalmurphal/taskmaster/internal/task"
)

var (
	cfgFile    string
	verbose    bool
	quiet      bool
	jsonOut    bool
	projectDir string
	tagFlag    string
	tasksFile  string
	logLevelFl string

	// v holds flag values overlaid with TM_* environment variables.
	v *viper.Viper
	// logLevel is adjusted once the project config is loaded.
	logLevel = new(slog.LevelVar)
)

// newRootCmd builds the command tree. Each call resets flag state.
func newRootCmd() *cobra.Command {
	v = viper.New()

	rootCmd := &cobra.Command{
		Use:   "tm",
		Short: "Task graph manager backed by a tagged JSON store",
		Long: `tm manages tasks, subtasks and their dependencies in .taskmaster/tasks/tasks.json.

Tasks live in tags (independent task lists in one file); the current tag is
recorded in .taskmaster/state.json. Every write is locked and atomic.

Quick start:
  tm init                          Initialize taskmaster in this project
  tm add-task --title "Set up CI"  Create a task
  tm next                          Show the next task to work on
  tm set-status 1 done             Complete it`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig(cmd.ErrOrStderr())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .taskmaster/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	pf.BoolVar(&jsonOut, "json", false, "output as JSON")
	pf.StringVarP(&projectDir, "project", "P", "", "directory to start project root discovery from")
	pf.StringVar(&tagFlag, "tag", "", "tag to operate on (default is the current tag)")
	pf.StringVarP(&tasksFile, "file", "f", "", "tasks file (default is discovered under the project root)")
	pf.StringVar(&logLevelFl, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	for _, name := range []string{"config", "project", "tag", "file"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newAddTaskCmd())
	rootCmd.AddCommand(newAddSubtaskCmd())
	rootCmd.AddCommand(newSetStatusCmd())
	rootCmd.AddCommand(newRemoveTaskCmd())
	rootCmd.AddCommand(newRemoveSubtaskCmd())
	rootCmd.AddCommand(newClearSubtasksCmd())
	rootCmd.AddCommand(newAddDependencyCmd())
	rootCmd.AddCommand(newRemoveDependencyCmd())
	rootCmd.AddCommand(newValidateDependenciesCmd())
	rootCmd.AddCommand(newFixDependenciesCmd())
	rootCmd.AddCommand(newTagsCmd())
	rootCmd.AddCommand(newLockCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd.ErrOrStderr(), err)
		return ExitCode(err)
	}
	return 0
}

// initConfig wires environment overrides and installs the logger.
func initConfig(stderr io.Writer) {
	v.SetEnvPrefix("TM")
	v.AutomaticEnv()

	switch {
	case verbose:
		logLevel.Set(slog.LevelDebug)
	case quiet:
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelWarn)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel})))
}

// loadProject resolves the project for a command using the global flags.
func loadProject(requireInit bool) (*bootstrap.Project, error) {
	p, err := bootstrap.Resolve(bootstrap.ResolveOptions{
		StartDir:    v.GetString("project"),
		ConfigPath:  v.GetString("config"),
		TasksFile:   v.GetString("file"),
		Tag:         v.GetString("tag"),
		RequireInit: requireInit,
		Logger:      slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	if logLevelFl != "" {
		if err := p.Config.SetFlag("log_level", logLevelFl); err != nil {
			return nil, err
		}
		if err := p.Config.Config.Validate(); err != nil {
			return nil, err
		}
	}
	if !verbose && !quiet {
		logLevel.Set(p.Config.Config.SlogLevel())
	}
	return p, nil
}

// loadTag reads the project's selected tag. A missing tasks file is reported
// as not initialized.
func loadTag(p *bootstrap.Project) (*task.TagData, error) {
	td, err := p.Store.Load(p.Tag)
	if err != nil {
		return nil, err
	}
	if td == nil {
		return nil, fmt.Errorf("no tasks file at %s; run 'tm init' first", p.TasksPath)
	}
	return td, nil
}

// mutate applies fn to the selected tag under the store lock and records the
// command in the session file.
func mutate(p *bootstrap.Project, command string, fn func(*task.TagData) error) error {
	if err := p.Store.Update(p.Tag, fn); err != nil {
		return err
	}
	recordSession(p, command, nil)
	return nil
}
