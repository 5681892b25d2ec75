// Package state persists small pieces of project state outside the task
// store: the current tag selection and generic timestamped state records.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
	"github.com/randalmurphal/taskmaster/internal/project"
	"github.com/randalmurphal/taskmaster/internal/task"
)

const guardSuffix = ".flock"

// TagState tracks which tag is active.
type TagState struct {
	CurrentTag           string            `json:"currentTag"`
	LastSwitched         string            `json:"lastSwitched,omitempty"`
	BranchTagMapping     map[string]string `json:"branchTagMapping"`
	MigrationNoticeShown bool              `json:"migrationNoticeShown"`
}

// Default returns the state used when no state file exists.
func Default() *TagState {
	return &TagState{
		CurrentTag:       task.DefaultTag,
		BranchTagMapping: map[string]string{},
	}
}

// Manager reads and writes a tag state file.
type Manager struct {
	path   string
	logger *slog.Logger
}

// NewManager creates a Manager for the state file at path.
func NewManager(path string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{path: path, logger: logger}
}

// Path returns the state file path.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the state. A missing file yields Default().
func (m *Manager) Load() (*TagState, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, tmerrors.IO("read", m.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Default(), nil
	}

	var s TagState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, tmerrors.InvalidStateStructure(m.path, err.Error())
	}
	if s.CurrentTag == "" {
		s.CurrentTag = task.DefaultTag
	}
	if s.BranchTagMapping == nil {
		s.BranchTagMapping = map[string]string{}
	}
	return &s, nil
}

// Save writes the state atomically while holding an OS lock on a guard file
// next to it.
func (m *Manager) Save(s *TagState) error {
	return withGuard(m.path, func() error {
		return writeJSON(m.path, s)
	})
}

// Update applies fn to the current state and saves it in one guarded
// section.
func (m *Manager) Update(fn func(*TagState) error) error {
	return withGuard(m.path, func() error {
		s, err := m.Load()
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		return writeJSON(m.path, s)
	})
}

// SetCurrentTag records tag as the active tag.
func (m *Manager) SetCurrentTag(tag string) error {
	err := m.Update(func(s *TagState) error {
		if s.CurrentTag != tag {
			s.CurrentTag = tag
			s.LastSwitched = task.Now()
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Debug("current tag set", "tag", tag)
	return nil
}

// CurrentTag returns the active tag, falling back to master.
func (m *Manager) CurrentTag() (string, error) {
	s, err := m.Load()
	if err != nil {
		return "", err
	}
	return s.CurrentTag, nil
}

// ResolveCurrentTag returns the current tag recorded under projectRoot,
// or master when there is no project root or no state file.
func ResolveCurrentTag(projectRoot string) (string, error) {
	if projectRoot == "" {
		return task.DefaultTag, nil
	}
	return NewManager(project.NewPaths(projectRoot).StateFile, nil).CurrentTag()
}

// Record is a generic state record: an object payload and the time it was
// last written.
type Record struct {
	Data        map[string]any `json:"data"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// LoadRecord reads and validates a record. A missing file returns nil, nil.
// A file whose data is missing or not an object, or whose lastUpdated is
// missing or not an ISO-8601 timestamp, fails with InvalidStateStructure
// and is left as is.
func LoadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, tmerrors.IO("read", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, tmerrors.InvalidStateStructure(path, "not a JSON object")
	}

	var rec Record
	payload, ok := raw["data"]
	if !ok || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return nil, tmerrors.InvalidStateStructure(path, "data is missing")
	}
	if err := json.Unmarshal(payload, &rec.Data); err != nil {
		return nil, tmerrors.InvalidStateStructure(path, "data must be an object")
	}

	stamp, ok := raw["lastUpdated"]
	if !ok {
		return nil, tmerrors.InvalidStateStructure(path, "lastUpdated is missing")
	}
	var s string
	if err := json.Unmarshal(stamp, &s); err != nil {
		return nil, tmerrors.InvalidStateStructure(path, "lastUpdated must be a string")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, tmerrors.InvalidStateStructure(path, fmt.Sprintf("lastUpdated %q is not a timestamp", s))
	}
	rec.LastUpdated = t
	return &rec, nil
}

// SaveRecord writes data with the current time as lastUpdated.
func SaveRecord(path string, data map[string]any) (*Record, error) {
	if data == nil {
		data = map[string]any{}
	}
	rec := &Record{Data: data, LastUpdated: time.Now().UTC()}
	err := withGuard(path, func() error {
		return writeJSON(path, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func withGuard(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tmerrors.IO("create directory", filepath.Dir(path), err)
	}
	guard := flock.New(path + guardSuffix)
	if err := guard.Lock(); err != nil {
		return tmerrors.IO("lock", guard.Path(), err)
	}
	defer func() { _ = guard.Unlock() }()
	return fn()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return tmerrors.IO("write", path, err)
	}
	return nil
}
