package cli

import (
	"fmt"
	"io"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// PrintError prints an error with appropriate formatting.
// If the error is a TMError, it uses the user-friendly format.
// Otherwise, it prints a simple error message.
func PrintError(w io.Writer, err error) {
	if tmErr := tmerrors.AsTMError(err); tmErr != nil {
		if jsonOut {
			_ = writeJSON(w, map[string]any{"error": tmErr})
			return
		}
		_, _ = fmt.Fprintln(w, tmErr.UserMessage())
		if verbose {
			// In verbose mode, also print the error code and cause
			_, _ = fmt.Fprintf(w, "\nCode: %s\n", tmErr.Code)
			if tmErr.Cause != nil {
				_, _ = fmt.Fprintf(w, "Cause: %v\n", tmErr.Cause)
			}
		}
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

// ExitCode maps err to a process exit code. Unstructured errors exit 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if tmErr := tmerrors.AsTMError(err); tmErr != nil {
		return tmErr.ExitCode()
	}
	return 1
}
