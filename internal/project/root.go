// Package project locates the taskmaster project root and the canonical
// paths beneath it.
package project

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// MaxSearchDepth bounds the upward walk.
const MaxSearchDepth = 50

// Markers that identify a taskmaster project. These win over any generic
// marker, even one closer to the start directory.
var taskMasterMarkers = []string{
	TaskMasterDir,
	LegacyConfigFile,
}

// Generic project markers, consulted only when no taskmaster marker exists
// anywhere up the chain.
var genericMarkers = []string{
	".git",
	"package.json",
	"Cargo.toml",
	"go.mod",
	"pyproject.toml",
	"requirements.txt",
	"Gemfile",
	"composer.json",
	"setup.py",
	"pom.xml",
	"build.gradle",
}

// Resolver finds project roots on a filesystem.
type Resolver struct {
	fs    afero.Fs
	getwd func() (string, error)
}

// NewResolver returns a Resolver over fs. A nil fs uses the OS filesystem.
func NewResolver(fs afero.Fs) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Resolver{fs: fs, getwd: os.Getwd}
}

// FindProjectRoot resolves startDir with the OS filesystem.
func FindProjectRoot(startDir string) string {
	return NewResolver(nil).FindProjectRoot(startDir)
}

// FindProjectRoot walks up from startDir and returns the nearest directory
// holding a taskmaster marker. If none exists up to the filesystem root (or
// MaxSearchDepth levels), the nearest directory holding a generic marker is
// returned instead. With no marker at all the working directory is returned.
//
// A relative startDir is resolved against the working directory and an empty
// one means the working directory. Stat failures count as "not found".
func (r *Resolver) FindProjectRoot(startDir string) string {
	root, ok := r.find(startDir)
	if !ok {
		return r.cwd()
	}
	return root
}

// FindStrict is FindProjectRoot without the fallback: it fails with
// ProjectRootNotFound when no marker exists.
func (r *Resolver) FindStrict(startDir string) (string, error) {
	root, ok := r.find(startDir)
	if !ok {
		return "", tmerrors.ProjectRootNotFound(r.abs(startDir))
	}
	return root, nil
}

func (r *Resolver) find(startDir string) (string, bool) {
	levels := r.levels(r.abs(startDir))
	for _, dir := range levels {
		if r.hasAny(dir, taskMasterMarkers) {
			return dir, true
		}
	}
	for _, dir := range levels {
		if r.hasAny(dir, genericMarkers) {
			return dir, true
		}
	}
	return "", false
}

// levels lists start and its ancestors, nearest first, capped at
// MaxSearchDepth entries.
func (r *Resolver) levels(start string) []string {
	var out []string
	dir := start
	for i := 0; i < MaxSearchDepth; i++ {
		out = append(out, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return out
}

func (r *Resolver) hasAny(dir string, markers []string) bool {
	for _, m := range markers {
		if _, err := r.fs.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}

func (r *Resolver) abs(dir string) string {
	if dir == "" {
		return r.cwd()
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(r.cwd(), dir)
}

func (r *Resolver) cwd() string {
	wd, err := r.getwd()
	if err != nil {
		return "."
	}
	return wd
}

// IsInitialized reports whether root contains a .taskmaster directory.
func (r *Resolver) IsInitialized(root string) bool {
	ok, err := afero.DirExists(r.fs, filepath.Join(root, TaskMasterDir))
	return err == nil && ok
}
