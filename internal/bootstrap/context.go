package bootstrap

import (
	"log/slog"
	"os"

	"github.com/randalmurphal/taskmaster/internal/config"
	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
	"github.com/randalmurphal/taskmaster/internal/lock"
	"github.com/randalmurphal/taskmaster/internal/project"
	"github.com/randalmurphal/taskmaster/internal/state"
	"github.com/randalmurphal/taskmaster/internal/store"
)

// ResolveOptions selects the project a command runs against.
type ResolveOptions struct {
	// StartDir is where root discovery starts (default: current directory).
	StartDir string
	// ConfigPath overrides the discovered config file.
	ConfigPath string
	// TasksFile overrides the discovered tasks file.
	TasksFile string
	// Tag overrides the current tag.
	Tag string
	// RequireInit fails with NotInitialized when the root has no
	// .taskmaster directory or legacy config.
	RequireInit bool

	Logger *slog.Logger
}

// Project is everything a command needs, resolved once.
type Project struct {
	Root      string
	Paths     project.Paths
	Config    *config.TrackedConfig
	TasksPath string
	Tag       string

	Store  *store.Store
	State  *state.Manager
	Locks  *lock.Manager
	Logger *slog.Logger
}

// Resolve finds the project root, loads config and state, and builds the
// store for the selected tasks file. The current tag is resolved here so
// operations receive it explicitly.
func Resolve(opts ResolveOptions) (*Project, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := project.NewResolver(nil)
	root := resolver.FindProjectRoot(opts.StartDir)
	paths := project.NewPaths(root)

	if opts.RequireInit && !resolver.IsInitialized(root) && !fileExists(paths.LegacyConfigFile) {
		return nil, tmerrors.NotInitialized(root)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = resolver.FindConfigPath(root)
	}
	tc, err := config.LoadWithSources(configPath)
	if err != nil {
		return nil, err
	}

	explicit := opts.TasksFile
	if explicit == "" {
		explicit = tc.Config.TasksFile
	}
	tasksPath := resolver.FindTasksPath(root, explicit)

	locks := lock.NewManager(tc.Config.LockOptions(), logger)
	st := state.NewManager(paths.StateFile, logger)

	tag := opts.Tag
	if tag == "" {
		tag, err = currentTag(st, tc.Config.DefaultTag)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("project resolved", "root", root, "tasks", tasksPath, "tag", tag)
	return &Project{
		Root:      root,
		Paths:     paths,
		Config:    tc,
		TasksPath: tasksPath,
		Tag:       tag,
		Store:     store.New(root, tasksPath, locks, logger),
		State:     st,
		Locks:     locks,
		Logger:    logger,
	}, nil
}

// CurrentTag returns the active tag regardless of --tag: the tag recorded in
// the state file, or the configured default tag when there is none.
func (p *Project) CurrentTag() (string, error) {
	return currentTag(p.State, p.Config.Config.DefaultTag)
}

// currentTag reads the state file; without one the configured default tag
// applies.
func currentTag(st *state.Manager, fallback string) (string, error) {
	if !fileExists(st.Path()) {
		return fallback, nil
	}
	return st.CurrentTag()
}

// RecordSession saves the last command run against the project.
func (p *Project) RecordSession(command string, details map[string]any) error {
	data := map[string]any{
		"lastCommand": command,
		"tag":         p.Tag,
	}
	for k, v := range details {
		data[k] = v
	}
	_, err := state.SaveRecord(p.Paths.SessionFile, data)
	return err
}

// LastSession returns the last recorded session, or nil.
func (p *Project) LastSession() (*state.Record, error) {
	return state.LoadRecord(p.Paths.SessionFile)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
