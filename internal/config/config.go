// Package config provides configuration management for taskmaster.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
	"github.com/randalmurphal/taskmaster/internal/lock"
	"github.com/randalmurphal/taskmaster/internal/task"
)

// CurrentVersion is the config file version written by this build.
const CurrentVersion = 1

// LockConfig tunes the task store file lock.
type LockConfig struct {
	// StaleAfter is the age after which a lock is considered abandoned.
	StaleAfter time.Duration `yaml:"stale_after"`
	// MaxAttempts bounds acquisition attempts before LOCK_TIMEOUT.
	MaxAttempts int `yaml:"max_attempts"`
	// RetryDelay is the first backoff delay; it doubles per attempt.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// MaxRetryDelay caps the backoff delay.
	MaxRetryDelay time.Duration `yaml:"max_retry_delay"`
}

// Config represents the taskmaster configuration.
type Config struct {
	// Version is the config file version
	Version int `yaml:"version"`

	// ProjectName is shown in listings; defaults to the root directory name.
	ProjectName string `yaml:"project_name,omitempty"`

	// DefaultTag is used when no current tag is recorded.
	DefaultTag string `yaml:"default_tag"`

	// DefaultPriority applies to new tasks added without --priority.
	DefaultPriority string `yaml:"default_priority"`

	// DefaultSubtasks is the suggested subtask count when expanding tasks.
	DefaultSubtasks int `yaml:"default_subtasks"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// TasksFile overrides the tasks file location (relative to the root).
	TasksFile string `yaml:"tasks_file,omitempty"`

	Lock LockConfig `yaml:"lock"`
}

// Default returns the default configuration.
func Default() *Config {
	opts := lock.DefaultOptions()
	return &Config{
		Version:         CurrentVersion,
		DefaultTag:      task.DefaultTag,
		DefaultPriority: string(task.DefaultPriority),
		DefaultSubtasks: 5,
		LogLevel:        "warn",
		Lock: LockConfig{
			StaleAfter:    opts.StaleAfter,
			MaxAttempts:   opts.MaxAttempts,
			RetryDelay:    opts.RetryDelay,
			MaxRetryDelay: opts.MaxRetryDelay,
		},
	}
}

// LoadFrom loads the config from a specific path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Return default config if file doesn't exist
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default() // Start with defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, tmerrors.ConfigInvalid(path, err.Error())
	}

	return cfg, nil
}

// SaveTo saves the config to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if err := task.ValidateTagName(c.DefaultTag); err != nil {
		return tmerrors.ConfigInvalid("default_tag", fmt.Sprintf("%q is not a valid tag name", c.DefaultTag))
	}
	if !task.IsValidPriority(task.Priority(c.DefaultPriority)) {
		return tmerrors.ConfigInvalid("default_priority", fmt.Sprintf("%q is not one of high, medium, low", c.DefaultPriority))
	}
	if c.DefaultSubtasks < 0 {
		return tmerrors.ConfigInvalid("default_subtasks", "must not be negative")
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return tmerrors.ConfigInvalid("log_level", fmt.Sprintf("%q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.Lock.StaleAfter < 0 || c.Lock.RetryDelay < 0 || c.Lock.MaxRetryDelay < 0 {
		return tmerrors.ConfigInvalid("lock", "durations must not be negative")
	}
	if c.Lock.MaxAttempts < 0 {
		return tmerrors.ConfigInvalid("lock.max_attempts", "must not be negative")
	}
	return nil
}

// LockOptions converts the lock section for the lock package. Zero values
// fall back to the lock package defaults.
func (c *Config) LockOptions() lock.Options {
	return lock.Options{
		StaleAfter:    c.Lock.StaleAfter,
		MaxAttempts:   c.Lock.MaxAttempts,
		RetryDelay:    c.Lock.RetryDelay,
		MaxRetryDelay: c.Lock.MaxRetryDelay,
	}
}

// SlogLevel returns LogLevel as a slog.Level, defaulting to warn.
func (c *Config) SlogLevel() slog.Level {
	lvl, ok := parseLevel(c.LogLevel)
	if !ok {
		return slog.LevelWarn
	}
	return lvl
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning", "":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
