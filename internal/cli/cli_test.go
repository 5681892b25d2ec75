package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
	"github.com/randalmurphal/taskmaster/internal/project"
	"github.com/randalmurphal/taskmaster/internal/testutil"
)

// run executes tm with args against dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"-P", dir}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "tm %v", args)
	return out
}

func initProject(t *testing.T) string {
	t.Helper()
	return testutil.SetupProject(t).Root
}

func readTasks(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(project.NewPaths(dir).TasksFile)
	require.NoError(t, err)
	return string(data)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "init", "--name", "demo")
	assert.Contains(t, out, "Initialized taskmaster")

	paths := project.NewPaths(dir)
	for _, p := range []string{paths.ConfigFile, paths.StateFile, paths.TasksFile} {
		assert.FileExists(t, p)
	}
	assert.True(t, gjson.Get(readTasks(t, dir), "master.tasks").IsArray())

	_, err := run(t, dir, "init")
	assert.Error(t, err, "re-init without --force")
}

func TestNotInitialized(t *testing.T) {
	dir := t.TempDir()
	// Keep root discovery inside the temp dir.
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	_, err := run(t, dir, "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, tmerrors.ErrNotInitialized)
	assert.Equal(t, 2, ExitCode(err))
}

func TestAddTaskAndList(t *testing.T) {
	dir := initProject(t)

	mustRun(t, dir, "add-task", "--title", "Set up CI", "--priority", "high")
	mustRun(t, dir, "add-task", "--title", "Deploy", "--dependencies", "1")

	out := mustRun(t, dir, "--json", "list")
	assert.Equal(t, "master", gjson.Get(out, "tag").String())
	tasks := gjson.Get(out, "tasks").Array()
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(1), tasks[0].Get("id").Int())
	assert.Equal(t, "high", tasks[0].Get("priority").String())
	assert.Equal(t, "medium", tasks[1].Get("priority").String())
	assert.Equal(t, []any{float64(1)}, tasks[1].Get("dependencies").Value())

	out = mustRun(t, dir, "list")
	assert.Contains(t, out, "Set up CI")
	assert.Contains(t, out, "2 tasks (0 done)")

	out = mustRun(t, dir, "--json", "list", "--status", "done")
	assert.Empty(t, gjson.Get(out, "tasks").Array())

	_, err := run(t, dir, "list", "--status", "finished")
	assert.Error(t, err)
}

func TestAddTask_UsesConfiguredPriority(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "config", "set", "default_priority", "low")

	mustRun(t, dir, "add-task", "--title", "Low by default")

	assert.Equal(t, "low", gjson.Get(readTasks(t, dir), "master.tasks.0.priority").String())
}

func TestAddTask_MissingDependency(t *testing.T) {
	dir := initProject(t)
	before := readTasks(t, dir)

	_, err := run(t, dir, "add-task", "--title", "Orphan", "--dependencies", "7")

	require.Error(t, err)
	assert.ErrorIs(t, err, tmerrors.ErrInvalidDependency)
	assert.Equal(t, before, readTasks(t, dir))
}

func TestSubtasksAndNext(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "add-task", "--title", "Parent")
	mustRun(t, dir, "add-task", "--title", "Other", "--priority", "high")
	mustRun(t, dir, "add-subtask", "1", "--title", "First")
	mustRun(t, dir, "add-subtask", "1", "--title", "Second", "--dependencies", "1")

	// Plain id 1 inside task 1 names sibling subtask 1.1.
	out := mustRun(t, dir, "--json", "next")
	assert.Equal(t, int64(2), gjson.Get(out, "next.id").Int(), "high priority top-level task wins")

	mustRun(t, dir, "set-status", "1", "in-progress")
	out = mustRun(t, dir, "--json", "next")
	assert.Equal(t, "1.1", gjson.Get(out, "next.id").String())

	mustRun(t, dir, "set-status", "1.1", "done")
	out = mustRun(t, dir, "--json", "next")
	assert.Equal(t, "1.2", gjson.Get(out, "next.id").String())

	out = mustRun(t, dir, "show", "1.2")
	assert.Contains(t, out, "Subtask 1.2:")
	assert.Contains(t, out, "1.1 ✓")
}

func TestSetStatus_DoneCascades(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "add-task", "--title", "Parent")
	mustRun(t, dir, "add-subtask", "1", "--title", "A")
	mustRun(t, dir, "add-subtask", "1", "--title", "B")

	out := mustRun(t, dir, "--json", "set-status", "1", "done")
	assert.Len(t, gjson.Get(out, "changed").Array(), 3)

	doc := readTasks(t, dir)
	assert.Equal(t, "done", gjson.Get(doc, "master.tasks.0.subtasks.1.status").String())

	_, err := run(t, dir, "set-status", "1", "finished")
	assert.Error(t, err)
	_, err = run(t, dir, "set-status", "9", "done")
	assert.ErrorIs(t, err, tmerrors.ErrTaskNotFound)
}

func TestRemoveSubtask_Convert(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "add-task", "--title", "Parent", "--priority", "high")
	mustRun(t, dir, "add-subtask", "1", "--title", "Promote me")

	out := mustRun(t, dir, "remove-subtask", "1.1", "--convert")
	assert.Contains(t, out, "Converted subtask 1.1 to task 2")

	doc := readTasks(t, dir)
	assert.False(t, gjson.Get(doc, "master.tasks.0.subtasks").Exists())
	assert.Equal(t, "Promote me", gjson.Get(doc, "master.tasks.1.title").String())
	assert.Equal(t, "high", gjson.Get(doc, "master.tasks.1.priority").String())
	assert.Equal(t, []any{float64(1)}, gjson.Get(doc, "master.tasks.1.dependencies").Value())

	_, err := run(t, dir, "remove-subtask", "1")
	assert.ErrorIs(t, err, tmerrors.ErrInvalidSubtaskID)
}

func TestRemoveTaskAndClearSubtasks(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "add-task", "--title", "A")
	mustRun(t, dir, "add-task", "--title", "B", "--dependencies", "1")
	mustRun(t, dir, "add-subtask", "2", "--title", "B1")
	mustRun(t, dir, "add-subtask", "2", "--title", "B2")

	out := mustRun(t, dir, "clear-subtasks", "2")
	assert.Contains(t, out, "Cleared 2 subtasks")

	_, err := run(t, dir, "clear-subtasks")
	assert.Error(t, err, "ids or --all required")

	mustRun(t, dir, "remove-task", "1")
	doc := readTasks(t, dir)
	assert.Len(t, gjson.Get(doc, "master.tasks").Array(), 1)
	assert.Equal(t, "[]", gjson.Get(doc, "master.tasks.0.dependencies").Raw)
}

func TestDependencyCommands(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "add-task", "--title", "A")
	mustRun(t, dir, "add-task", "--title", "B")

	mustRun(t, dir, "add-dependency", "--id", "2", "--depends-on", "1")

	_, err := run(t, dir, "add-dependency", "--id", "1", "--depends-on", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, tmerrors.ErrCircularDependency)
	assert.Equal(t, 4, ExitCode(err))

	_, err = run(t, dir, "add-dependency", "--id", "2", "--depends-on", "1")
	assert.ErrorIs(t, err, tmerrors.ErrInvalidDependency, "duplicate edge")

	mustRun(t, dir, "remove-dependency", "--id", "2", "--depends-on", "1")
	assert.Equal(t, "[]", gjson.Get(readTasks(t, dir), "master.tasks.1.dependencies").Raw)
}

func TestValidateAndFixDependencies(t *testing.T) {
	tp := testutil.SetupProject(t)
	dir := tp.Root
	broken := `{
  "master": {
    "tasks": [
      {"id": 1, "title": "A", "description": "", "status": "pending", "dependencies": [1, 9, 2, 2]},
      {"id": 2, "title": "B", "description": "", "status": "pending", "dependencies": []}
    ],
    "metadata": {"created": "2024-01-01T00:00:00.000Z"}
  },
  "other": {"tasks": [], "metadata": {}}
}`
	tp.WriteTasks(broken)

	out, err := run(t, dir, "--json", "validate-dependencies")
	require.Error(t, err)
	assert.False(t, gjson.Get(out, "valid").Bool())
	assert.Len(t, gjson.Get(out, "issues.master").Array(), 3)

	out = mustRun(t, dir, "--json", "fix-dependencies")
	assert.True(t, gjson.Get(out, "changed").Bool())

	doc := readTasks(t, dir)
	assert.Equal(t, []any{float64(2)}, gjson.Get(doc, "master.tasks.0.dependencies").Value())
	assert.True(t, gjson.Get(doc, "other").Exists(), "sibling tag kept")

	out = mustRun(t, dir, "validate-dependencies", "--all-tags")
	assert.Contains(t, out, "All dependencies are valid.")

	before := readTasks(t, dir)
	out = mustRun(t, dir, "fix-dependencies")
	assert.Contains(t, out, "No invalid dependencies found.")
	assert.Equal(t, before, readTasks(t, dir), "no rewrite when nothing changed")
}

func TestValidateDependencies_ReportsBadFields(t *testing.T) {
	tp := testutil.SetupProject(t)
	tp.WriteTasks(`{
  "master": {
    "tasks": [
      {"id": 1, "title": "A", "description": "", "status": "someday", "dependencies": []},
      {"id": 1, "title": "B", "description": "", "status": "pending", "dependencies": []}
    ],
    "metadata": {}
  }
}`)

	out, err := run(t, tp.Root, "--json", "validate-dependencies")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task fields")
	assert.False(t, gjson.Get(out, "valid").Bool())
	fields := gjson.Get(out, "fields.master").Array()
	require.Len(t, fields, 2)
	assert.Equal(t, "status", fields[0].Get("field").String())
	assert.Equal(t, "someday", fields[0].Get("value").String())
	assert.Equal(t, "id", fields[1].Get("field").String())
}

func TestFixDependencies_UnparsableEntries(t *testing.T) {
	tp := testutil.SetupProject(t)
	tp.WriteTasks(`{
  "master": {
    "tasks": [
      {"id": 1, "title": "A", "description": "", "status": "pending", "dependencies": [1, 1, "abc", 99, null, 2]},
      {"id": 2, "title": "B", "description": "", "status": "pending", "dependencies": []}
    ],
    "metadata": {}
  }
}`)

	out := mustRun(t, tp.Root, "--json", "fix-dependencies")
	assert.True(t, gjson.Get(out, "changed").Bool())
	assert.Equal(t, []any{float64(2)}, gjson.Get(tp.ReadTasks(), "master.tasks.0.dependencies").Value())

	mustRun(t, tp.Root, "validate-dependencies")
}

func TestAddTask_KeepsHTMLCharacters(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "add-task", "--title", "a < b && c > d")

	raw := readTasks(t, dir)
	assert.Contains(t, raw, `"a < b && c > d"`)
	assert.NotContains(t, raw, `\u003c`)
}

func TestTagsList_DefaultTagWithoutState(t *testing.T) {
	tp := testutil.SetupProject(t)
	mustRun(t, tp.Root, "tags", "add", "feature-x")
	require.NoError(t, os.Remove(tp.Paths.StateFile))
	tp.SetConfig("default_tag", "feature-x")

	out := mustRun(t, tp.Root, "--json", "tags", "list")
	current := map[string]bool{}
	for _, tag := range gjson.Get(out, "tags").Array() {
		current[tag.Get("name").String()] = tag.Get("isCurrent").Bool()
	}
	assert.Equal(t, map[string]bool{"master": false, "feature-x": true}, current)

	out = mustRun(t, tp.Root, "--json", "list")
	assert.Equal(t, "feature-x", gjson.Get(out, "tag").String())
}

func TestTagsLifecycle(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "add-task", "--title", "On master")

	mustRun(t, dir, "tags", "add", "feature-x", "--description", "Feature X")
	mustRun(t, dir, "--tag", "feature-x", "add-task", "--title", "On feature")

	out := mustRun(t, dir, "--json", "tags", "list")
	tags := gjson.Get(out, "tags").Array()
	require.Len(t, tags, 2)
	assert.Equal(t, "master", tags[0].Get("name").String())
	assert.True(t, tags[0].Get("isCurrent").Bool())
	assert.Equal(t, int64(1), tags[1].Get("taskCount").Int())

	out = mustRun(t, dir, "--json", "tags", "list", "--match", "feat*")
	assert.Len(t, gjson.Get(out, "tags").Array(), 1)

	mustRun(t, dir, "tags", "use", "feature-x")
	out = mustRun(t, dir, "--json", "list")
	assert.Equal(t, "feature-x", gjson.Get(out, "tag").String())

	reports := project.ComplexityReportPath(dir, "feature-x")
	require.NoError(t, os.WriteFile(reports, []byte("{}"), 0o644))

	mustRun(t, dir, "tags", "rename", "feature-x", "feature-y")
	assert.NoFileExists(t, reports)
	assert.FileExists(t, project.ComplexityReportPath(dir, "feature-y"))
	out = mustRun(t, dir, "--json", "list")
	assert.Equal(t, "feature-y", gjson.Get(out, "tag").String(), "current tag follows rename")

	_, err := run(t, dir, "tags", "delete", "feature-y")
	assert.ErrorIs(t, err, tmerrors.ErrTagActive)

	mustRun(t, dir, "tags", "copy", "master", "snapshot")
	mustRun(t, dir, "tags", "use", "master")
	_, err = run(t, dir, "tags", "delete", "snapshot")
	assert.ErrorIs(t, err, tmerrors.ErrTagNotEmpty)

	mustRun(t, dir, "tags", "add", "scratch")
	mustRun(t, dir, "tags", "delete", "scratch")
	assert.False(t, gjson.Get(readTasks(t, dir), "scratch").Exists())

	_, err = run(t, dir, "tags", "rename", "master", "main")
	assert.ErrorIs(t, err, tmerrors.ErrInvalidTagName)
	_, err = run(t, dir, "tags", "use", "missing")
	assert.ErrorIs(t, err, tmerrors.ErrTagNotFound)

	out = mustRun(t, dir, "--json", "list", "--tag-glob", "*")
	assert.True(t, gjson.Get(out, "tags.snapshot").IsArray())
}

func TestLockCommands(t *testing.T) {
	dir := initProject(t)
	tasksPath := project.NewPaths(dir).TasksFile

	out := mustRun(t, dir, "--json", "lock", "status")
	assert.False(t, gjson.Get(out, "locked").Bool())

	lockFile := tasksPath + ".lock"
	record := `{"pid": 999999, "timestamp": 1577836800000, "owner": "abc"}`
	require.NoError(t, os.WriteFile(lockFile, []byte(record), 0o644))

	out = mustRun(t, dir, "--json", "lock", "status")
	assert.True(t, gjson.Get(out, "locked").Bool())
	assert.True(t, gjson.Get(out, "lock.stale").Bool())

	out = mustRun(t, dir, "lock", "clear")
	assert.Contains(t, out, "Lock cleared")
	assert.NoFileExists(t, lockFile)

	out = mustRun(t, dir, "lock", "clear")
	assert.Contains(t, out, "No lock to clear")
}

func TestConfigCommands(t *testing.T) {
	tp := testutil.SetupProject(t)
	dir := tp.Root

	out := mustRun(t, dir, "config", "get", "default_tag")
	assert.Equal(t, "master\n", out)

	tp.SetConfig("project_name", "renamed")
	out = mustRun(t, dir, "config", "get", "project_name")
	assert.Equal(t, "renamed\n", out)

	mustRun(t, dir, "config", "set", "lock.max_attempts", "5")
	out = mustRun(t, dir, "config", "get", "lock.max_attempts", "--source")
	assert.Contains(t, out, "5 (from project:")

	_, err := run(t, dir, "config", "set", "default_priority", "urgent")
	assert.ErrorIs(t, err, tmerrors.ErrConfigInvalid)

	t.Setenv("TM_LOG_LEVEL", "error")
	out = mustRun(t, dir, "config", "show", "--source")
	assert.Regexp(t, `(?m)^log_level\s+error\s+env: TM_LOG_LEVEL$`, out)

	out = mustRun(t, dir, "--log-level", "debug", "config", "get", "log_level", "--source")
	assert.Equal(t, "debug (from flag: --log-level)\n", out)

	_, err = run(t, dir, "--log-level", "loud", "list")
	assert.ErrorIs(t, err, tmerrors.ErrConfigInvalid)
}

func TestSessionRecorded(t *testing.T) {
	dir := initProject(t)
	mustRun(t, dir, "add-task", "--title", "A")

	data, err := os.ReadFile(project.NewPaths(dir).SessionFile)
	require.NoError(t, err)
	assert.Equal(t, "add-task", gjson.GetBytes(data, "data.lastCommand").String())
}

func TestPrintError(t *testing.T) {
	jsonOut, verbose = false, false
	var buf bytes.Buffer
	PrintError(&buf, tmerrors.TagNotFound("x"))
	assert.Contains(t, buf.String(), `Error: tag "x" not found`)
	assert.Contains(t, buf.String(), "Fix: Run 'tm tags list'")

	buf.Reset()
	PrintError(&buf, os.ErrClosed)
	assert.Equal(t, "Error: file already closed\n", buf.String())
	assert.Equal(t, 1, ExitCode(os.ErrClosed))
	assert.Equal(t, 0, ExitCode(nil))
}
