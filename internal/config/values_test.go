package config

import (
	"testing"
	"time"
)

func TestConfig_GetValue(t *testing.T) {
	cfg := Default()
	cfg.ProjectName = "demo"

	tests := []struct {
		path string
		want string
	}{
		{"version", "1"},
		{"project_name", "demo"},
		{"default_tag", "master"},
		{"default_priority", "medium"},
		{"lock.stale_after", "10s"},
		{"lock.max_attempts", "60"},
		{"lock.retry_delay", "10ms"},
		{"tasks_file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := cfg.GetValue(tt.path)
			if err != nil {
				t.Fatalf("GetValue(%q) error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("GetValue(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestConfig_GetValue_Unknown(t *testing.T) {
	cfg := Default()
	for _, path := range []string{"", "nope", "lock.nope", "default_tag.more"} {
		if _, err := cfg.GetValue(path); err == nil {
			t.Errorf("GetValue(%q) expected error", path)
		}
	}
}

func TestConfig_SetValue(t *testing.T) {
	cfg := Default()

	if err := cfg.SetValue("default_priority", "low"); err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultPriority != "low" {
		t.Errorf("DefaultPriority = %s, want low", cfg.DefaultPriority)
	}

	if err := cfg.SetValue("default_subtasks", "8"); err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultSubtasks != 8 {
		t.Errorf("DefaultSubtasks = %d, want 8", cfg.DefaultSubtasks)
	}

	if err := cfg.SetValue("lock.max_retry_delay", "1s"); err != nil {
		t.Fatal(err)
	}
	if cfg.Lock.MaxRetryDelay != time.Second {
		t.Errorf("Lock.MaxRetryDelay = %v, want 1s", cfg.Lock.MaxRetryDelay)
	}

	if err := cfg.SetValue("project_name", "demo"); err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectName != "demo" {
		t.Errorf("ProjectName = %q, want demo", cfg.ProjectName)
	}
}

func TestConfig_SetValue_RejectedLeavesConfigUnchanged(t *testing.T) {
	cfg := Default()
	before := *cfg
	if err := cfg.SetValue("lock.max_attempts", "lots"); err == nil {
		t.Fatal("expected error")
	}
	if *cfg != before {
		t.Errorf("config changed after rejected set: %+v", cfg)
	}
}

func TestConfig_SetValue_Errors(t *testing.T) {
	cfg := Default()

	tests := []struct {
		path  string
		value string
	}{
		{"default_subtasks", "many"},
		{"lock.stale_after", "soon"},
		{"lock", "anything"},
		{"unknown", "x"},
	}
	for _, tt := range tests {
		if err := cfg.SetValue(tt.path, tt.value); err == nil {
			t.Errorf("SetValue(%q, %q) expected error", tt.path, tt.value)
		}
	}
}

func TestAllConfigPaths(t *testing.T) {
	cfg := Default()
	for _, path := range AllConfigPaths() {
		if _, err := cfg.GetValue(path); err != nil {
			t.Errorf("path %q not readable: %v", path, err)
		}
	}
}
