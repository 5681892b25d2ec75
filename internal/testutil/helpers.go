// Package testutil provides helpers for tests that need an initialized
// project on disk.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/taskmaster/internal/bootstrap"
	"github.com/randalmurphal/taskmaster/internal/project"
)

// TestProject is a temporary project with taskmaster initialized.
type TestProject struct {
	t     *testing.T
	Root  string
	Paths project.Paths
}

// SetupProject creates a temporary directory with a .git marker and runs
// init in it. The directory is cleaned up when the test completes.
func SetupProject(t *testing.T) *TestProject {
	t.Helper()

	root := t.TempDir()
	// Stops root discovery from walking above the temp dir.
	if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatalf("create .git marker: %v", err)
	}
	if _, err := bootstrap.Run(bootstrap.Options{WorkDir: root, SkipGitignore: true}); err != nil {
		t.Fatalf("init project: %v", err)
	}

	return &TestProject{
		t:     t,
		Root:  root,
		Paths: project.NewPaths(root),
	}
}

// ReadTasks returns the raw tasks file.
func (p *TestProject) ReadTasks() string {
	p.t.Helper()

	data, err := os.ReadFile(p.Paths.TasksFile)
	if err != nil {
		p.t.Fatalf("read tasks file: %v", err)
	}
	return string(data)
}

// WriteTasks replaces the tasks file with content, bypassing the store.
func (p *TestProject) WriteTasks(content string) {
	p.t.Helper()

	if err := os.WriteFile(p.Paths.TasksFile, []byte(content), 0644); err != nil {
		p.t.Fatalf("write tasks file: %v", err)
	}
}

// SetConfig sets a value in the project config. Nested keys use dots.
func (p *TestProject) SetConfig(key string, value any) {
	p.t.Helper()

	config := ReadYAML(p.t, p.Paths.ConfigFile)

	parts := strings.Split(key, ".")
	current := config
	for i, part := range parts[:len(parts)-1] {
		if _, ok := current[part]; !ok {
			current[part] = make(map[string]any)
		}
		var ok bool
		current, ok = current[part].(map[string]any)
		if !ok {
			p.t.Fatalf("config path %s is not a map at %s", key, strings.Join(parts[:i+1], "."))
		}
	}
	current[parts[len(parts)-1]] = value

	WriteYAML(p.t, p.Paths.ConfigFile, config)
}

// WriteYAML writes a YAML file.
func WriteYAML(t *testing.T, path string, data any) {
	t.Helper()

	bytes, err := yaml.Marshal(data)
	if err != nil {
		t.Fatalf("marshal YAML: %v", err)
	}

	if err := os.WriteFile(path, bytes, 0644); err != nil {
		t.Fatalf("write YAML file %s: %v", path, err)
	}
}

// ReadYAML reads a YAML file into a map.
func ReadYAML(t *testing.T, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read YAML file %s: %v", path, err)
	}

	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal YAML: %v", err)
	}

	if result == nil {
		result = make(map[string]any)
	}

	return result
}
