package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// LoadWithSources loads configuration with source tracking.
// Load order (later sources override earlier):
//  1. Built-in defaults
//  2. Project config at path (optional)
//  3. Environment variables (TM_*)
//
// The merged result is validated.
func LoadWithSources(path string) (*TrackedConfig, error) {
	tc := NewTrackedConfig()

	if path != "" {
		if err := mergeFromFile(tc, path); err != nil {
			return nil, err
		}
	}

	ApplyEnvVars(tc)

	if err := tc.Config.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

// mergeFromFile overlays the keys present in the file onto tc. Keys absent
// from the file keep their current value and source.
func mergeFromFile(tc *TrackedConfig, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return tmerrors.ConfigInvalid(path, err.Error())
	}

	// Decoding onto the current values leaves absent keys untouched.
	if err := yaml.Unmarshal(data, tc.Config); err != nil {
		return tmerrors.ConfigInvalid(path, err.Error())
	}

	for _, key := range presentKeys(raw) {
		tc.SetSourceWithPath(key, SourceProject, path)
	}
	return nil
}

// presentKeys flattens the keys of a decoded YAML mapping into dot paths,
// keeping only known config paths.
func presentKeys(raw map[string]any) []string {
	known := make(map[string]bool)
	for _, p := range AllConfigPaths() {
		known[p] = true
	}
	var out []string
	var walk func(m map[string]any, prefix string)
	walk = func(m map[string]any, prefix string) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok {
				walk(sub, key)
				continue
			}
			if known[key] {
				out = append(out, key)
			}
		}
	}
	walk(raw, "")
	sort.Strings(out)
	return out
}
