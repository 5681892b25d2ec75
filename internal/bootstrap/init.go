// Package bootstrap initializes taskmaster projects and resolves the
// per-command project context.
package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/randalmurphal/taskmaster/internal/config"
	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
	"github.com/randalmurphal/taskmaster/internal/lock"
	"github.com/randalmurphal/taskmaster/internal/project"
	"github.com/randalmurphal/taskmaster/internal/state"
	"github.com/randalmurphal/taskmaster/internal/store"
	"github.com/randalmurphal/taskmaster/internal/task"
)

// Options configures the init process.
type Options struct {
	// WorkDir is the directory to initialize (default: current directory)
	WorkDir string

	// Force rewrites the config and state files. Existing tasks are kept.
	Force bool

	// ProjectName defaults to the base name of WorkDir.
	ProjectName string

	// SkipGitignore leaves .gitignore untouched.
	SkipGitignore bool

	Logger *slog.Logger
}

// Result contains the results of initialization.
type Result struct {
	Duration   time.Duration
	Root       string
	ConfigPath string
	TasksPath  string
	StatePath  string

	// CreatedTasks is false when a tasks file already existed.
	CreatedTasks bool
}

// Run initializes a project: the .taskmaster directory tree, config.yaml,
// state.json and a tasks file holding an empty master tag.
func Run(opts Options) (*Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		opts.WorkDir = wd
	}
	root, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	paths := project.NewPaths(root)

	if !opts.Force {
		if _, err := os.Stat(paths.TaskMasterDir); err == nil {
			return nil, fmt.Errorf("taskmaster already initialized in %s (use --force to reinitialize)", root)
		}
	}

	for _, dir := range []string{paths.TaskMasterDir, paths.TasksDir, paths.DocsDir, paths.ReportsDir, paths.TemplatesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, tmerrors.IO("create directory", dir, err)
		}
	}

	cfg := config.Default()
	cfg.ProjectName = opts.ProjectName
	if cfg.ProjectName == "" {
		cfg.ProjectName = filepath.Base(root)
	}
	if err := cfg.SaveTo(paths.ConfigFile); err != nil {
		return nil, err
	}

	if err := state.NewManager(paths.StateFile, logger).Save(state.Default()); err != nil {
		return nil, err
	}

	created, err := ensureTasksFile(paths.TasksFile, root, cfg, logger)
	if err != nil {
		return nil, err
	}

	if !opts.SkipGitignore {
		if err := updateGitignore(root); err != nil {
			logger.Warn("could not update .gitignore", "error", err)
		}
	}

	return &Result{
		Duration:     time.Since(start),
		Root:         root,
		ConfigPath:   paths.ConfigFile,
		TasksPath:    paths.TasksFile,
		StatePath:    paths.StateFile,
		CreatedTasks: created,
	}, nil
}

// ensureTasksFile creates the tasks file with an empty master tag unless a
// non-empty one exists. It reports whether the file was created.
func ensureTasksFile(path, root string, cfg *config.Config, logger *slog.Logger) (bool, error) {
	s := store.New(root, path, lock.NewManager(cfg.LockOptions(), logger), logger)
	doc, err := s.Document()
	if err != nil {
		return false, err
	}
	if doc != nil {
		return false, nil
	}
	err = s.Save(task.DefaultTag, &task.TagData{
		Tasks:    []task.Task{},
		Metadata: task.Metadata{Description: "Tasks for master context"},
	})
	return err == nil, err
}

// PrintResult prints a summary of the initialization.
func PrintResult(w io.Writer, r *Result) {
	fmt.Fprintf(w, "Initialized taskmaster in %v\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Root:   %s\n", r.Root)
	fmt.Fprintf(w, "  Config: %s\n", r.ConfigPath)
	if r.CreatedTasks {
		fmt.Fprintf(w, "  Tasks:  %s\n", r.TasksPath)
	} else {
		fmt.Fprintf(w, "  Tasks:  %s (kept existing)\n", r.TasksPath)
	}
	fmt.Fprintf(w, "\nNext steps:\n")
	fmt.Fprintf(w, "  tm add-task --title \"First task\"  # Create a task\n")
	fmt.Fprintf(w, "  tm list                           # Show tasks\n")
}
