package project

import (
	"path/filepath"
)

// Directory and file names under a project root.
const (
	TaskMasterDir    = ".taskmaster"
	LegacyConfigFile = ".taskmasterconfig"

	TasksDirName     = "tasks"
	TasksFileName    = "tasks.json"
	ConfigFileName   = "config.yaml"
	StateFileName    = "state.json"
	SessionFileName  = "session.json"
	ReportsDirName   = "reports"
	DocsDirName      = "docs"
	TemplatesDirName = "templates"

	complexityReportBase = "task-complexity-report"
)

// Paths holds the canonical locations for a project root.
type Paths struct {
	Root          string
	TaskMasterDir string
	TasksDir      string
	TasksFile     string
	ConfigFile    string
	StateFile     string
	SessionFile   string
	ReportsDir    string
	DocsDir       string
	TemplatesDir  string

	// Pre-.taskmaster layouts.
	LegacyConfigFile string
	LegacyTasksFile  string
	RootTasksFile    string
}

// NewPaths returns the canonical paths under root.
func NewPaths(root string) Paths {
	tm := filepath.Join(root, TaskMasterDir)
	return Paths{
		Root:             root,
		TaskMasterDir:    tm,
		TasksDir:         filepath.Join(tm, TasksDirName),
		TasksFile:        filepath.Join(tm, TasksDirName, TasksFileName),
		ConfigFile:       filepath.Join(tm, ConfigFileName),
		StateFile:        filepath.Join(tm, StateFileName),
		SessionFile:      filepath.Join(tm, SessionFileName),
		ReportsDir:       filepath.Join(tm, ReportsDirName),
		DocsDir:          filepath.Join(tm, DocsDirName),
		TemplatesDir:     filepath.Join(tm, TemplatesDirName),
		LegacyConfigFile: filepath.Join(root, LegacyConfigFile),
		LegacyTasksFile:  filepath.Join(root, TasksDirName, TasksFileName),
		RootTasksFile:    filepath.Join(root, TasksFileName),
	}
}

// FindTasksPath returns the tasks file to use under root. An explicit path
// wins (relative paths are taken from root); otherwise the first existing
// file of .taskmaster/tasks/tasks.json, tasks/tasks.json and tasks.json is
// used. When none exists the canonical location is returned.
func (r *Resolver) FindTasksPath(root, explicit string) string {
	if explicit != "" {
		if filepath.IsAbs(explicit) {
			return explicit
		}
		return filepath.Join(root, explicit)
	}
	p := NewPaths(root)
	for _, candidate := range []string{p.TasksFile, p.LegacyTasksFile, p.RootTasksFile} {
		if r.isFile(candidate) {
			return candidate
		}
	}
	return p.TasksFile
}

// FindConfigPath returns .taskmaster/config.yaml, or the legacy
// .taskmasterconfig when only that exists.
func (r *Resolver) FindConfigPath(root string) string {
	p := NewPaths(root)
	if !r.isFile(p.ConfigFile) && r.isFile(p.LegacyConfigFile) {
		return p.LegacyConfigFile
	}
	return p.ConfigFile
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// ComplexityReportPath returns the complexity report location for tag. The
// master tag uses the unsuffixed name.
func ComplexityReportPath(root, tag string) string {
	name := complexityReportBase
	if tag != "" && tag != "master" {
		name += "_" + tag
	}
	return filepath.Join(root, TaskMasterDir, ReportsDirName, name+".json")
}
