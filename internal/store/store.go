// Package store reads and writes the tagged tasks file.
//
// Every write runs under the file lock and goes through a temporary file in
// the same directory, so readers only ever see the previous or the new
// content. A write targets exactly one tag; every other top-level key is
// carried over from the on-disk document as raw JSON.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
	"github.com/randalmurphal/taskmaster/internal/lock"
	"github.com/randalmurphal/taskmaster/internal/state"
	"github.com/randalmurphal/taskmaster/internal/task"
	"github.com/randalmurphal/taskmaster/internal/util"
)

const defaultPerm = 0o644

// Store is the tasks file of one project.
type Store struct {
	root   string
	path   string
	locks  *lock.Manager
	logger *slog.Logger
	now    func() string

	writeFile func(path string, data []byte, perm os.FileMode) error
}

// New returns a Store for the tasks file at path. projectRoot is used to
// resolve the current tag when callers pass an empty tag; it may be empty.
func New(projectRoot, path string, locks *lock.Manager, logger *slog.Logger) *Store {
	if locks == nil {
		locks = lock.DefaultManager
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:   projectRoot,
		path:   path,
		locks:  locks,
		logger: logger,
		now:    task.Now,

		writeFile: util.AtomicWriteFile,
	}
}

// Path returns the tasks file path.
func (s *Store) Path() string {
	return s.path
}

// Root returns the project root.
func (s *Store) Root() string {
	return s.root
}

// ResolveTag returns tag, or the current tag from project state when tag is
// empty. An unreadable state file falls back to the default tag.
func (s *Store) ResolveTag(tag string) string {
	if tag != "" {
		return tag
	}
	current, err := state.ResolveCurrentTag(s.root)
	if err != nil {
		s.logger.Warn("cannot read current tag, using default", "error", err)
		return task.DefaultTag
	}
	return current
}

// Document reads the whole file. A missing or empty file yields nil, nil.
func (s *Store) Document() (*task.Document, error) {
	doc, err := ReadDocument(s.path)
	if err != nil || doc == nil {
		return doc, err
	}
	if doc.Len() == 0 {
		return nil, nil
	}
	return doc, nil
}

// Load returns one tag's data. A missing file yields nil, nil; a missing tag
// in an existing file yields an empty TagData.
func (s *Store) Load(tag string) (*task.TagData, error) {
	doc, err := s.Document()
	if err != nil || doc == nil {
		return nil, err
	}
	tag = s.ResolveTag(tag)
	if !doc.Has(tag) {
		return &task.TagData{Tasks: []task.Task{}}, nil
	}
	td, err := doc.Get(tag)
	if err != nil {
		return nil, tmerrors.InvalidDocument(s.path, err)
	}
	return td, nil
}

// Save replaces one tag's data, leaving every other key as read.
func (s *Store) Save(tag string, data *task.TagData) error {
	tag = s.ResolveTag(tag)
	return s.UpdateDocument(func(doc *task.Document) error {
		return s.put(doc, tag, data)
	})
}

// Update runs fn on one tag's current data and saves the result, all under
// a single lock. The tag is created if absent. If fn returns an error
// nothing is written.
func (s *Store) Update(tag string, fn func(*task.TagData) error) error {
	tag = s.ResolveTag(tag)
	return s.UpdateDocument(func(doc *task.Document) error {
		td := &task.TagData{Tasks: []task.Task{}}
		if doc.Has(tag) {
			existing, err := doc.Get(tag)
			if err != nil {
				return tmerrors.InvalidDocument(s.path, err)
			}
			td = existing
		}
		if err := fn(td); err != nil {
			return err
		}
		return s.put(doc, tag, td)
	})
}

// UpdateDocument runs fn on the whole document under the lock and writes the
// result. Tag lifecycle operations use it because they touch several keys.
func (s *Store) UpdateDocument(fn func(*task.Document) error) error {
	return s.locks.WithFileLock(s.path, func() error {
		doc, err := ReadDocument(s.path)
		if err != nil {
			return err
		}
		if doc == nil {
			doc = task.NewDocument()
		}
		legacy := doc.IsLegacy()
		if err := fn(doc); err != nil {
			return err
		}
		if err := s.write(doc); err != nil {
			return err
		}
		if legacy {
			s.logger.Info("migrated tasks file to tagged format", "path", s.path)
		}
		return nil
	})
}

// put stamps metadata and stores data under tag. created is kept from the
// existing tag when the caller did not set it, as are metadata keys the
// caller does not know about.
func (s *Store) put(doc *task.Document, tag string, data *task.TagData) error {
	if data == nil {
		data = &task.TagData{}
	}
	if doc.Has(tag) {
		if prev, err := doc.Get(tag); err == nil {
			if data.Metadata.Created == "" {
				data.Metadata.Created = prev.Metadata.Created
			}
			for k, v := range prev.Metadata.Extra {
				if _, ok := data.Metadata.Extra[k]; ok {
					continue
				}
				if data.Metadata.Extra == nil {
					data.Metadata.Extra = make(map[string]json.RawMessage)
				}
				data.Metadata.Extra[k] = v
			}
		}
	}
	now := s.now()
	if data.Metadata.Created == "" {
		data.Metadata.Created = now
	}
	data.Metadata.Updated = now
	return doc.Set(tag, data)
}

func (s *Store) write(doc *task.Document) error {
	data, err := util.MarshalIndentJSON(doc)
	if err != nil {
		return tmerrors.InvalidDocument(s.path, err)
	}
	perm := util.FileMode(s.path, defaultPerm)
	if err := s.writeFile(s.path, data, perm); err != nil {
		return tmerrors.IO("write", s.path, err)
	}
	s.logger.Debug("tasks file written", "path", s.path, "bytes", len(data))
	return nil
}

// ReadDocument reads and parses the tasks file without locking. A missing
// file yields nil, nil. Legacy untagged files are presented as the default
// tag.
func ReadDocument(path string) (*task.Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, tmerrors.IO("read", path, err)
	}
	doc, err := task.ParseDocument(data)
	if err != nil {
		return nil, tmerrors.InvalidDocument(path, err)
	}
	return doc, nil
}

// ReadJSON returns tag's data from the tasks file at path. An empty tag is
// resolved from the state under projectRoot. A missing file yields nil, nil.
func ReadJSON(path, projectRoot, tag string) (*task.TagData, error) {
	return New(projectRoot, path, nil, nil).Load(tag)
}

// WriteJSON merges data into tag of the tasks file at path and writes it
// atomically under the file lock. Other tags are left as they are on disk.
func WriteJSON(path string, data *task.TagData, projectRoot, tag string) error {
	return New(projectRoot, path, nil, nil).Save(tag, data)
}

// Update is the package-level form of Store.Update.
func Update(path, projectRoot, tag string, fn func(*task.TagData) error) error {
	return New(projectRoot, path, nil, nil).Update(tag, fn)
}
