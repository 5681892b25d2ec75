// Package errors provides structured error types for taskmaster.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for taskmaster.
const (
	// Project errors
	CodeNotInitialized      Code = "TM_NOT_INITIALIZED"
	CodeProjectRootNotFound Code = "PROJECT_ROOT_NOT_FOUND"

	// Storage errors
	CodeLockTimeout           Code = "LOCK_TIMEOUT"
	CodeIO                    Code = "IO_ERROR"
	CodeInvalidStateStructure Code = "INVALID_STATE_STRUCTURE"
	CodeInvalidDocument       Code = "INVALID_DOCUMENT"

	// Task errors
	CodeTaskNotFound           Code = "TASK_NOT_FOUND"
	CodeParentNotFound         Code = "PARENT_NOT_FOUND"
	CodeSubtaskNotFound        Code = "SUBTASK_NOT_FOUND"
	CodeInvalidSubtaskIDFormat Code = "INVALID_SUBTASK_ID_FORMAT"
	CodeInvalidTaskField       Code = "INVALID_TASK_FIELD"

	// Dependency errors
	CodeInvalidDependency  Code = "INVALID_DEPENDENCY"
	CodeCircularDependency Code = "CIRCULAR_DEPENDENCY"

	// Tag errors
	CodeTagNotFound    Code = "TAG_NOT_FOUND"
	CodeTagExists      Code = "TAG_EXISTS"
	CodeInvalidTagName Code = "INVALID_TAG_NAME"
	CodeTagNotEmpty    Code = "TAG_NOT_EMPTY"
	CodeTagActive      Code = "TAG_ACTIVE"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
)

// Category groups error codes for exit code mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryInternal
	CategoryTimeout
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeNotInitialized:         CategoryBadRequest,
	CodeProjectRootNotFound:    CategoryNotFound,
	CodeLockTimeout:            CategoryTimeout,
	CodeIO:                     CategoryInternal,
	CodeInvalidStateStructure:  CategoryInternal,
	CodeInvalidDocument:        CategoryInternal,
	CodeTaskNotFound:           CategoryNotFound,
	CodeParentNotFound:         CategoryNotFound,
	CodeSubtaskNotFound:        CategoryNotFound,
	CodeInvalidSubtaskIDFormat: CategoryBadRequest,
	CodeInvalidTaskField:       CategoryBadRequest,
	CodeInvalidDependency:      CategoryBadRequest,
	CodeCircularDependency:     CategoryConflict,
	CodeTagNotFound:            CategoryNotFound,
	CodeTagExists:              CategoryConflict,
	CodeInvalidTagName:         CategoryBadRequest,
	CodeTagNotEmpty:            CategoryConflict,
	CodeTagActive:              CategoryConflict,
	CodeConfigInvalid:          CategoryBadRequest,
}

// ExitCode returns the process exit code for a category.
func (c Category) ExitCode() int {
	switch c {
	case CategoryNotFound:
		return 3
	case CategoryBadRequest:
		return 2
	case CategoryConflict:
		return 4
	case CategoryTimeout:
		return 5
	default:
		return 1
	}
}

// TMError is the structured error type for taskmaster.
type TMError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *TMError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *TMError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *TMError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category.
func (e *TMError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// ExitCode returns the process exit code for this error.
func (e *TMError) ExitCode() int {
	return e.Category().ExitCode()
}

// MarshalJSON implements json.Marshaler.
func (e *TMError) MarshalJSON() ([]byte, error) {
	type alias TMError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a TMError with the same code.
func (e *TMError) Is(target error) bool {
	t, ok := target.(*TMError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *TMError) WithCause(err error) *TMError {
	return &TMError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// Sentinels for errors.Is checks against a code regardless of message.
var (
	ErrLockTimeout           = &TMError{Code: CodeLockTimeout}
	ErrIO                    = &TMError{Code: CodeIO}
	ErrInvalidStateStructure = &TMError{Code: CodeInvalidStateStructure}
	ErrTaskNotFound          = &TMError{Code: CodeTaskNotFound}
	ErrParentNotFound        = &TMError{Code: CodeParentNotFound}
	ErrSubtaskNotFound       = &TMError{Code: CodeSubtaskNotFound}
	ErrInvalidSubtaskID      = &TMError{Code: CodeInvalidSubtaskIDFormat}
	ErrInvalidDependency     = &TMError{Code: CodeInvalidDependency}
	ErrCircularDependency    = &TMError{Code: CodeCircularDependency}
	ErrTagNotFound           = &TMError{Code: CodeTagNotFound}
	ErrTagExists             = &TMError{Code: CodeTagExists}
	ErrInvalidTagName        = &TMError{Code: CodeInvalidTagName}
	ErrTagNotEmpty           = &TMError{Code: CodeTagNotEmpty}
	ErrTagActive             = &TMError{Code: CodeTagActive}
	ErrNotInitialized        = &TMError{Code: CodeNotInitialized}
	ErrProjectRootNotFound   = &TMError{Code: CodeProjectRootNotFound}
	ErrInvalidDocument       = &TMError{Code: CodeInvalidDocument}
	ErrInvalidTaskField      = &TMError{Code: CodeInvalidTaskField}
	ErrConfigInvalid         = &TMError{Code: CodeConfigInvalid}
)

// --- Error constructors ---

// NotInitialized returns an error for a directory without .taskmaster.
func NotInitialized(dir string) *TMError {
	return &TMError{
		Code: CodeNotInitialized,
		What: "taskmaster is not initialized",
		Why:  fmt.Sprintf("No .taskmaster/ directory found in %s or its parents", dir),
		Fix:  "Run 'tm init' in the project root",
	}
}

// ProjectRootNotFound returns an error when no project marker was found.
func ProjectRootNotFound(start string) *TMError {
	return &TMError{
		Code: CodeProjectRootNotFound,
		What: "project root not found",
		Why:  fmt.Sprintf("No project markers found above %s", start),
		Fix:  "Run from inside a project, or pass --project",
	}
}

// LockTimeout returns an error when a file lock could not be acquired.
func LockTimeout(path string, attempts int) *TMError {
	return &TMError{
		Code: CodeLockTimeout,
		What: fmt.Sprintf("could not lock %s", path),
		Why:  fmt.Sprintf("lock still held after %d attempts", attempts),
		Fix:  "Wait for the other process to finish, or run 'tm lock clear' if it crashed",
	}
}

// IO wraps a filesystem failure.
func IO(op, path string, cause error) *TMError {
	return &TMError{
		Code:  CodeIO,
		What:  fmt.Sprintf("%s %s", op, path),
		Cause: cause,
	}
}

// InvalidStateStructure returns an error for a malformed state file.
func InvalidStateStructure(path, reason string) *TMError {
	return &TMError{
		Code: CodeInvalidStateStructure,
		What: fmt.Sprintf("invalid state file %s", path),
		Why:  reason,
		Fix:  "Fix or remove the state file manually",
	}
}

// InvalidDocument returns an error for a tasks file that is not valid JSON.
func InvalidDocument(path string, cause error) *TMError {
	return &TMError{
		Code:  CodeInvalidDocument,
		What:  fmt.Sprintf("invalid tasks file %s", path),
		Cause: cause,
	}
}

// TaskNotFound returns an error when a task doesn't exist.
func TaskNotFound(id string) *TMError {
	return &TMError{
		Code: CodeTaskNotFound,
		What: fmt.Sprintf("task %s not found", id),
		Fix:  "Run 'tm list' to see available tasks",
	}
}

// ParentNotFound returns an error when a subtask's parent doesn't exist.
func ParentNotFound(id int) *TMError {
	return &TMError{
		Code: CodeParentNotFound,
		What: fmt.Sprintf("parent task %d not found", id),
	}
}

// SubtaskNotFound returns an error when a subtask doesn't exist in its parent.
func SubtaskNotFound(parentID, subtaskID int) *TMError {
	return &TMError{
		Code: CodeSubtaskNotFound,
		What: fmt.Sprintf("subtask %d.%d not found", parentID, subtaskID),
	}
}

// InvalidSubtaskID returns an error for a malformed "parent.sub" reference.
func InvalidSubtaskID(raw string) *TMError {
	return &TMError{
		Code: CodeInvalidSubtaskIDFormat,
		What: fmt.Sprintf("invalid subtask id %q", raw),
		Why:  "expected the form parentId.subtaskId",
	}
}

// InvalidTaskField returns an error for an invalid task field value.
func InvalidTaskField(field, value string) *TMError {
	return &TMError{
		Code: CodeInvalidTaskField,
		What: fmt.Sprintf("invalid %s %q", field, value),
	}
}

// InvalidDependency returns an error for a dependency that cannot be added.
func InvalidDependency(from, to, reason string) *TMError {
	return &TMError{
		Code: CodeInvalidDependency,
		What: fmt.Sprintf("cannot make %s depend on %s", from, to),
		Why:  reason,
	}
}

// CircularDependency returns an error when an edge would close a cycle.
func CircularDependency(from, to string) *TMError {
	return &TMError{
		Code: CodeCircularDependency,
		What: fmt.Sprintf("cannot make %s depend on %s", from, to),
		Why:  "the dependency would create a cycle",
		Fix:  "Run 'tm validate-dependencies' to inspect the graph",
	}
}

// TagNotFound returns an error when a tag doesn't exist.
func TagNotFound(name string) *TMError {
	return &TMError{
		Code: CodeTagNotFound,
		What: fmt.Sprintf("tag %q not found", name),
		Fix:  "Run 'tm tags list' to see available tags",
	}
}

// TagExists returns an error when a tag name is already taken.
func TagExists(name string) *TMError {
	return &TMError{
		Code: CodeTagExists,
		What: fmt.Sprintf("tag %q already exists", name),
	}
}

// InvalidTagName returns an error for a tag name outside [a-zA-Z0-9-_]+.
func InvalidTagName(name string) *TMError {
	return &TMError{
		Code: CodeInvalidTagName,
		What: fmt.Sprintf("invalid tag name %q", name),
		Why:  "tag names may only contain letters, numbers, hyphens and underscores",
	}
}

// TagNotEmpty returns an error when deleting a tag that still has tasks.
func TagNotEmpty(name string, count int) *TMError {
	return &TMError{
		Code: CodeTagNotEmpty,
		What: fmt.Sprintf("tag %q still has %d tasks", name, count),
		Fix:  "Remove or move the tasks first",
	}
}

// TagActive returns an error when deleting the current tag.
func TagActive(name string) *TMError {
	return &TMError{
		Code: CodeTagActive,
		What: fmt.Sprintf("tag %q is the current tag", name),
		Fix:  "Switch to another tag with 'tm tags use' first",
	}
}

// ConfigInvalid returns an error for invalid configuration.
func ConfigInvalid(field, reason string) *TMError {
	return &TMError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .taskmaster/config.yaml and fix the invalid field",
	}
}

// AsTMError attempts to convert an error to a TMError.
// Returns nil if the error is not a TMError.
func AsTMError(err error) *TMError {
	var tmErr *TMError
	if stderrors.As(err, &tmErr) {
		return tmErr
	}
	return nil
}

// Wrap wraps a generic error into a TMError with unknown code.
func Wrap(err error, what string) *TMError {
	return &TMError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
