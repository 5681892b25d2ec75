package config

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllConfigPaths returns every settable config key.
func AllConfigPaths() []string {
	return []string{
		"version",
		"project_name",
		"default_tag",
		"default_priority",
		"default_subtasks",
		"log_level",
		"tasks_file",
		"lock.stale_after",
		"lock.max_attempts",
		"lock.retry_delay",
		"lock.max_retry_delay",
	}
}

// GetValue returns the value at a dotted key such as "lock.stale_after",
// formatted the way it appears in config.yaml.
func (c *Config) GetValue(path string) (string, error) {
	if !slices.Contains(AllConfigPaths(), path) {
		return "", unknownKey(path)
	}
	doc, err := c.node()
	if err != nil {
		return "", err
	}
	n := walk(doc, strings.Split(path, "."), false)
	if n == nil {
		// omitempty keys are absent while unset
		return "", nil
	}
	return n.Value, nil
}

// SetValue parses value as YAML into the field at a dotted key. A value the
// field's type rejects leaves c unchanged.
func (c *Config) SetValue(path, value string) error {
	if !slices.Contains(AllConfigPaths(), path) {
		if slices.ContainsFunc(AllConfigPaths(), func(p string) bool { return strings.HasPrefix(p, path+".") }) {
			return fmt.Errorf("%s is a section; set one of its keys", path)
		}
		return unknownKey(path)
	}
	doc, err := c.node()
	if err != nil {
		return err
	}
	n := walk(doc, strings.Split(path, "."), true)
	n.Kind, n.Tag, n.Style, n.Value = yaml.ScalarNode, "", 0, value

	next := *c
	if err := doc.Decode(&next); err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, path, err)
	}
	*c = next
	return nil
}

func (c *Config) node() (*yaml.Node, error) {
	var doc yaml.Node
	if err := doc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return &doc, nil
}

// walk follows keys through nested mappings. With create set, missing keys
// are appended as empty scalars; otherwise a missing key yields nil.
func walk(n *yaml.Node, keys []string, create bool) *yaml.Node {
	for _, key := range keys {
		if n.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				next = n.Content[i+1]
				break
			}
		}
		if next == nil {
			if !create {
				return nil
			}
			next = &yaml.Node{Kind: yaml.ScalarNode}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, next)
		}
		n = next
	}
	return n
}

func unknownKey(path string) error {
	if path == "" {
		return fmt.Errorf("empty config key")
	}
	return fmt.Errorf("unknown config key: %s", path)
}
