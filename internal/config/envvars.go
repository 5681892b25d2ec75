package config

import (
	"log/slog"
	"os"
	"sort"
)

// EnvPrefix prefixes every taskmaster environment variable.
const EnvPrefix = "TM_"

// EnvVarMapping maps environment variables to config paths.
var EnvVarMapping = map[string]string{
	"TM_PROJECT_NAME":         "project_name",
	"TM_DEFAULT_TAG":          "default_tag",
	"TM_DEFAULT_PRIORITY":     "default_priority",
	"TM_DEFAULT_SUBTASKS":     "default_subtasks",
	"TM_LOG_LEVEL":            "log_level",
	"TM_TASKS_FILE":           "tasks_file",
	"TM_LOCK_STALE_AFTER":     "lock.stale_after",
	"TM_LOCK_MAX_ATTEMPTS":    "lock.max_attempts",
	"TM_LOCK_RETRY_DELAY":     "lock.retry_delay",
	"TM_LOCK_MAX_RETRY_DELAY": "lock.max_retry_delay",
}

// ApplyEnvVars applies environment variable overrides to tc and returns the
// overridden paths in sorted order. Values that do not parse are logged and
// skipped.
func ApplyEnvVars(tc *TrackedConfig) []string {
	return applyEnv(tc, os.LookupEnv)
}

func applyEnv(tc *TrackedConfig, lookup func(string) (string, bool)) []string {
	vars := make([]string, 0, len(EnvVarMapping))
	for envVar := range EnvVarMapping {
		vars = append(vars, envVar)
	}
	sort.Strings(vars)

	var overridden []string
	for _, envVar := range vars {
		value, ok := lookup(envVar)
		if !ok || value == "" {
			continue
		}
		path := EnvVarMapping[envVar]
		if err := tc.Config.SetValue(path, value); err != nil {
			slog.Warn("ignoring environment override", "var", envVar, "error", err)
			continue
		}
		tc.SetSourceWithPath(path, SourceEnv, envVar)
		overridden = append(overridden, path)
	}
	return overridden
}
