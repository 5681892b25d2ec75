package config

import (
	"fmt"
	"strings"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates a built-in default value.
	SourceDefault ConfigSource = "default"
	// SourceProject indicates the project config file.
	SourceProject ConfigSource = "project"
	// SourceEnv indicates an environment variable override.
	SourceEnv ConfigSource = "env"
	// SourceFlag indicates a CLI flag override.
	SourceFlag ConfigSource = "flag"
)

// TrackedSource contains both the source type and where it came from.
type TrackedSource struct {
	Source ConfigSource
	Path   string // file path or variable name; empty for defaults
}

// String returns a human-readable source description.
func (ts TrackedSource) String() string {
	if ts.Path == "" {
		return string(ts.Source)
	}
	return fmt.Sprintf("%s: %s", ts.Source, ts.Path)
}

// TrackedConfig wraps a Config with source tracking.
type TrackedConfig struct {
	Config  *Config
	Sources map[string]TrackedSource
}

// NewTrackedConfig creates a TrackedConfig holding defaults.
func NewTrackedConfig() *TrackedConfig {
	return &TrackedConfig{
		Config:  Default(),
		Sources: make(map[string]TrackedSource),
	}
}

// SetSource records the source for a config path.
func (tc *TrackedConfig) SetSource(path string, source ConfigSource) {
	tc.Sources[path] = TrackedSource{Source: source}
}

// SetSourceWithPath records the source and origin for a config path.
func (tc *TrackedConfig) SetSourceWithPath(path string, source ConfigSource, origin string) {
	tc.Sources[path] = TrackedSource{Source: source, Path: origin}
}

// GetSource returns the source for a config path, SourceDefault when unset.
func (tc *TrackedConfig) GetSource(path string) TrackedSource {
	if ts, ok := tc.Sources[path]; ok {
		return ts
	}
	return TrackedSource{Source: SourceDefault}
}

// SetFlag applies a CLI flag override. The flag is recorded under its
// dashed name, so lock.retry_delay becomes --lock-retry-delay.
func (tc *TrackedConfig) SetFlag(path, value string) error {
	if err := tc.Config.SetValue(path, value); err != nil {
		return err
	}
	tc.SetSourceWithPath(path, SourceFlag, "--"+flagReplacer.Replace(path))
	return nil
}

var flagReplacer = strings.NewReplacer("_", "-", ".", "-")
