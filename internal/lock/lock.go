// Package lock provides file-scoped mutual exclusion using a sidecar lock
// file next to the protected file.
//
// The sidecar is created with O_EXCL, so two processes racing for the same
// path rely on the filesystem's atomic create. A lock whose timestamp is
// older than the staleness threshold is treated as abandoned and reclaimed
// whether or not the recorded PID is still alive.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// Suffix is appended to the protected path to form the sidecar path.
const Suffix = ".lock"

// Defaults for Options.
const (
	DefaultStaleAfter    = 10 * time.Second
	DefaultMaxAttempts   = 60
	DefaultRetryDelay    = 10 * time.Millisecond
	DefaultMaxRetryDelay = 250 * time.Millisecond
)

// Path returns the sidecar lock path for path.
func Path(path string) string {
	return path + Suffix
}

// Record is the content of a sidecar lock file.
type Record struct {
	PID int `json:"pid"`
	// Timestamp is the acquisition time in Unix milliseconds.
	Timestamp int64  `json:"timestamp"`
	Owner     string `json:"owner,omitempty"`
}

// Acquired returns the acquisition time.
func (r Record) Acquired() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// IsStale reports whether the record is older than staleAfter at now.
func (r Record) IsStale(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(r.Acquired()) > staleAfter
}

// LockInfo describes the current holder of a lock.
type LockInfo struct {
	Path     string        `json:"path"`
	PID      int           `json:"pid"`
	Owner    string        `json:"owner,omitempty"`
	Acquired time.Time     `json:"acquired"`
	Age      time.Duration `json:"age"`
	Stale    bool          `json:"stale"`
	// HolderAlive is informational only; staleness never depends on it.
	HolderAlive bool `json:"holderAlive"`
}

// Options tunes acquisition.
type Options struct {
	StaleAfter    time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// DefaultOptions returns the default acquisition options.
func DefaultOptions() Options {
	return Options{
		StaleAfter:    DefaultStaleAfter,
		MaxAttempts:   DefaultMaxAttempts,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StaleAfter <= 0 {
		o.StaleAfter = d.StaleAfter
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = d.MaxRetryDelay
	}
	if o.MaxRetryDelay < o.RetryDelay {
		o.MaxRetryDelay = o.RetryDelay
	}
	return o
}

// Manager acquires and releases sidecar locks.
type Manager struct {
	opts   Options
	logger *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
	// staleSeen runs after a stale record is read and before it is moved.
	staleSeen func(lockPath string)
}

// NewManager creates a Manager. Zero option fields take their defaults.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Options returns the effective options.
func (m *Manager) Options() Options {
	return m.opts
}

// DefaultManager is used by the package-level helpers.
var DefaultManager = NewManager(DefaultOptions(), nil)

// WithFileLock runs fn while holding the lock on path using DefaultManager.
func WithFileLock(path string, fn func() error) error {
	return DefaultManager.WithFileLock(path, fn)
}

// WithFileLockValue is WithFileLock for callbacks that return a value.
func WithFileLockValue[T any](path string, fn func() (T, error)) (T, error) {
	return WithLockValue(DefaultManager, path, fn)
}

// WithLockValue runs fn under m's lock on path and returns its result.
func WithLockValue[T any](m *Manager, path string, fn func() (T, error)) (T, error) {
	var out T
	err := m.WithFileLock(path, func() error {
		v, err := fn()
		out = v
		return err
	})
	return out, err
}

// WithFileLock acquires the lock on path, runs fn and releases the lock.
// The lock is released on every exit path, including a panic in fn, and
// fn's error is returned unchanged. If path does not exist it is created
// empty, along with its parent directories, before fn runs.
func (m *Manager) WithFileLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tmerrors.IO("create directory", filepath.Dir(path), err)
	}
	release, err := m.acquire(path)
	if err != nil {
		return err
	}
	defer release()

	if err := ensureFile(path); err != nil {
		return err
	}
	return fn()
}

func ensureFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return tmerrors.IO("create", path, err)
	}
	return f.Close()
}

func (m *Manager) acquire(path string) (func(), error) {
	lockPath := Path(path)
	token := uuid.NewString()
	delay := m.opts.RetryDelay

	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		err := m.create(lockPath, token)
		if err == nil {
			m.logger.Debug("lock acquired", "path", path, "attempt", attempt)
			return func() { m.release(lockPath, token) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, tmerrors.IO("create lock", lockPath, err)
		}
		if m.reclaimStale(lockPath) {
			continue
		}

		m.logger.Debug("lock busy", "path", path, "attempt", attempt, "retry_in", delay)
		if attempt < m.opts.MaxAttempts {
			m.sleep(delay)
			delay *= 2
			if delay > m.opts.MaxRetryDelay {
				delay = m.opts.MaxRetryDelay
			}
		}
	}
	return nil, tmerrors.LockTimeout(path, m.opts.MaxAttempts)
}

func (m *Manager) create(lockPath, token string) error {
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	rec := Record{PID: os.Getpid(), Timestamp: m.now().UnixMilli(), Owner: token}
	data, err := json.Marshal(rec)
	if err == nil {
		_, err = f.Write(data)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(lockPath)
		return fmt.Errorf("write lock record: %w", err)
	}
	return nil
}

// reclaimStale removes the sidecar when it is older than the staleness
// threshold. A record that cannot be parsed is judged by file mtime. The
// sidecar is first renamed aside, so of several contenders that saw the same
// stale record only one can take it, and a fresh lock created in the
// meantime is put back rather than deleted.
func (m *Manager) reclaimStale(lockPath string) bool {
	acquired, seen, err := readAcquired(lockPath)
	if err != nil {
		// Vanished between create and read: the next attempt may succeed.
		return errors.Is(err, fs.ErrNotExist)
	}
	age := m.now().Sub(acquired)
	if age <= m.opts.StaleAfter {
		return false
	}
	if m.staleSeen != nil {
		m.staleSeen(lockPath)
	}

	aside := lockPath + "." + uuid.NewString() + ".stale"
	if err := os.Rename(lockPath, aside); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true
		}
		m.logger.Warn("remove stale lock failed", "path", lockPath, "error", err)
		return false
	}
	defer func() { _ = os.Remove(aside) }()

	if _, moved, err := readAcquired(aside); err != nil || !sameRecord(seen, moved) {
		if err := os.Link(aside, lockPath); err != nil {
			m.logger.Warn("could not restore replaced lock", "path", lockPath, "error", err)
		}
		return false
	}
	m.logger.Warn("reclaimed stale lock", "path", lockPath, "age", age.Round(time.Millisecond))
	return true
}

func sameRecord(a, b *Record) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// readAcquired returns the acquisition time of a sidecar, falling back to
// its mtime when the record is missing or malformed.
func readAcquired(lockPath string) (time.Time, *Record, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return time.Time{}, nil, err
	}
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return time.Time{}, nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Timestamp <= 0 {
		return info.ModTime(), nil, nil
	}
	return rec.Acquired(), &rec, nil
}

// release removes the sidecar unless another holder reclaimed it while fn
// was running.
func (m *Manager) release(lockPath, token string) {
	if data, err := os.ReadFile(lockPath); err == nil {
		var rec Record
		if json.Unmarshal(data, &rec) == nil && rec.Owner != "" && rec.Owner != token {
			m.logger.Warn("lock was reclaimed by another holder", "path", lockPath, "pid", rec.PID)
			return
		}
	}
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("release lock failed", "path", lockPath, "error", err)
	}
}

// Inspect returns the holder of the lock on path, or nil when unlocked.
func (m *Manager) Inspect(path string) (*LockInfo, error) {
	lockPath := Path(path)
	acquired, rec, err := readAcquired(lockPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, tmerrors.IO("read lock", lockPath, err)
	}
	age := m.now().Sub(acquired)
	info := &LockInfo{
		Path:     lockPath,
		Acquired: acquired,
		Age:      age,
		Stale:    age > m.opts.StaleAfter,
	}
	if rec != nil {
		info.PID = rec.PID
		info.Owner = rec.Owner
		info.HolderAlive = processExists(rec.PID)
	}
	return info, nil
}

// ForceRelease removes the lock on path regardless of holder. It reports
// whether a lock was present.
func (m *Manager) ForceRelease(path string) (bool, error) {
	lockPath := Path(path)
	err := os.Remove(lockPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, tmerrors.IO("remove lock", lockPath, err)
	}
	m.logger.Info("lock force-released", "path", lockPath)
	return true, nil
}

// processExists checks if a process with the given PID exists.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds. We need to send signal 0 to check.
	return process.Signal(syscall.Signal(0)) == nil
}
