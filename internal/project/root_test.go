package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// countingFs counts Stat calls and can fail them for chosen paths.
type countingFs struct {
	afero.Fs
	stats  int
	denied map[string]bool
}

func (c *countingFs) Stat(name string) (os.FileInfo, error) {
	c.stats++
	if c.denied[name] {
		return nil, os.ErrPermission
	}
	return c.Fs.Stat(name)
}

func newResolver(t *testing.T, cwd string, setup func(fs afero.Fs)) (*Resolver, *countingFs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll(cwd, 0o755))
	if setup != nil {
		setup(mem)
	}
	cfs := &countingFs{Fs: mem, denied: map[string]bool{}}
	r := NewResolver(cfs)
	r.getwd = func() (string, error) { return cwd, nil }
	return r, cfs
}

func mkdir(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(path, 0o755))
}

func touch(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte("{}"), 0o644))
}

func TestFindProjectRoot_TaskMasterMarkerBeatsNearerGit(t *testing.T) {
	r, _ := newResolver(t, "/elsewhere", func(fs afero.Fs) {
		mkdir(t, fs, "/project/.taskmaster")
		mkdir(t, fs, "/project/subdir/.git")
	})

	assert.Equal(t, "/project", r.FindProjectRoot("/project/subdir"))
}

func TestFindProjectRoot_LegacyConfigMarker(t *testing.T) {
	r, _ := newResolver(t, "/elsewhere", func(fs afero.Fs) {
		touch(t, fs, "/repo/.taskmasterconfig")
		touch(t, fs, "/repo/app/package.json")
	})

	assert.Equal(t, "/repo", r.FindProjectRoot("/repo/app/src"))
}

func TestFindProjectRoot_GenericMarkersNearestFirst(t *testing.T) {
	r, _ := newResolver(t, "/elsewhere", func(fs afero.Fs) {
		mkdir(t, fs, "/mono/.git")
		touch(t, fs, "/mono/svc/go.mod")
		mkdir(t, fs, "/mono/svc/pkg")
	})

	assert.Equal(t, "/mono/svc", r.FindProjectRoot("/mono/svc/pkg"))
}

func TestFindProjectRoot_TasksJSONIsNotAMarker(t *testing.T) {
	r, _ := newResolver(t, "/cwd", func(fs afero.Fs) {
		touch(t, fs, "/proj/sub/tasks.json")
		touch(t, fs, "/proj/sub/tasks/tasks.json")
		mkdir(t, fs, "/proj/.git")
	})

	assert.Equal(t, "/proj", r.FindProjectRoot("/proj/sub"))
}

func TestFindProjectRoot_FallbackToCwdWithBoundedChecks(t *testing.T) {
	r, cfs := newResolver(t, "/work/here", nil)

	got := r.FindProjectRoot("/a/b/c/d")

	assert.Equal(t, "/work/here", got)
	// Five levels (/a/b/c/d up to /), each checked for every marker.
	perLevel := len(taskMasterMarkers) + len(genericMarkers)
	assert.Equal(t, 5*perLevel, cfs.stats)
}

func TestFindProjectRoot_DepthBound(t *testing.T) {
	deep := "/"
	for i := 0; i < 80; i++ {
		deep = filepath.Join(deep, "d")
	}
	r, cfs := newResolver(t, "/cwd", func(fs afero.Fs) {
		// Beyond the depth bound, so never found.
		mkdir(t, fs, "/.taskmaster")
	})

	assert.Equal(t, "/cwd", r.FindProjectRoot(deep))
	assert.LessOrEqual(t, cfs.stats, MaxSearchDepth*(len(taskMasterMarkers)+len(genericMarkers)))
}

func TestFindProjectRoot_RelativeAndEmptyStart(t *testing.T) {
	r, _ := newResolver(t, "/proj", func(fs afero.Fs) {
		mkdir(t, fs, "/proj/.taskmaster")
		mkdir(t, fs, "/proj/sub")
	})

	assert.Equal(t, "/proj", r.FindProjectRoot(""))
	assert.Equal(t, "/proj", r.FindProjectRoot("sub"))
}

func TestFindProjectRoot_StatErrorsContinueUpward(t *testing.T) {
	r, cfs := newResolver(t, "/cwd", func(fs afero.Fs) {
		mkdir(t, fs, "/top/.taskmaster")
		mkdir(t, fs, "/top/locked/.taskmaster")
	})
	cfs.denied["/top/locked/.taskmaster"] = true

	assert.Equal(t, "/top", r.FindProjectRoot("/top/locked"))
}

func TestFindStrict(t *testing.T) {
	r, _ := newResolver(t, "/cwd", nil)

	_, err := r.FindStrict("/nowhere")
	assert.True(t, errors.Is(err, tmerrors.ErrProjectRootNotFound))
}

func TestFindTasksPath(t *testing.T) {
	r, _ := newResolver(t, "/p", func(fs afero.Fs) {
		touch(t, fs, "/p/tasks/tasks.json")
	})

	assert.Equal(t, "/p/tasks/tasks.json", r.FindTasksPath("/p", ""))
	assert.Equal(t, "/p/custom.json", r.FindTasksPath("/p", "custom.json"))
	assert.Equal(t, "/abs/t.json", r.FindTasksPath("/p", "/abs/t.json"))

	r2, _ := newResolver(t, "/q", nil)
	assert.Equal(t, "/q/.taskmaster/tasks/tasks.json", r2.FindTasksPath("/q", ""))
}

func TestFindConfigPath(t *testing.T) {
	r, _ := newResolver(t, "/p", func(fs afero.Fs) {
		touch(t, fs, "/p/.taskmasterconfig")
	})
	assert.Equal(t, "/p/.taskmasterconfig", r.FindConfigPath("/p"))

	r2, _ := newResolver(t, "/q", nil)
	assert.Equal(t, "/q/.taskmaster/config.yaml", r2.FindConfigPath("/q"))
}

func TestComplexityReportPath(t *testing.T) {
	assert.Equal(t, "/p/.taskmaster/reports/task-complexity-report.json", ComplexityReportPath("/p", "master"))
	assert.Equal(t, "/p/.taskmaster/reports/task-complexity-report_feat.json", ComplexityReportPath("/p", "feat"))
}

func TestIsInitialized(t *testing.T) {
	r, _ := newResolver(t, "/p", func(fs afero.Fs) {
		mkdir(t, fs, "/p/.taskmaster")
	})
	assert.True(t, r.IsInitialized("/p"))
	assert.False(t, r.IsInitialized("/other"))
}
