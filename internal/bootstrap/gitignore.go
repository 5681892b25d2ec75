package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// gitignoreEntries cover the transient files taskmaster leaves next to its
// data: lock sidecars, the state guard and the session record.
var gitignoreEntries = []string{
	"# taskmaster",
	".taskmaster/**/*.lock",
	".taskmaster/*.flock",
	".taskmaster/session.json",
}

// updateGitignore appends the taskmaster entries missing from .gitignore,
// creating the file if needed. Running it twice changes nothing.
func updateGitignore(workDir string) error {
	path := filepath.Join(workDir, ".gitignore")

	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read .gitignore: %w", err)
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(current), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var b strings.Builder
	for _, entry := range gitignoreEntries {
		if !present[entry] {
			b.WriteString(entry)
			b.WriteByte('\n')
		}
	}
	if b.Len() == 0 {
		return nil
	}

	prefix := ""
	switch {
	case len(current) == 0:
	case current[len(current)-1] != '\n':
		prefix = "\n\n"
	default:
		prefix = "\n"
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open .gitignore: %w", err)
	}
	if _, err := f.WriteString(prefix + b.String()); err != nil {
		f.Close()
		return fmt.Errorf("write .gitignore: %w", err)
	}
	return f.Close()
}
