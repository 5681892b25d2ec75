package task

import (
	"errors"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

var tagNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateTagName checks that name is non-empty and matches [a-zA-Z0-9-_]+.
func ValidateTagName(name string) error {
	if !tagNamePattern.MatchString(name) {
		return tmerrors.InvalidTagName(name)
	}
	return nil
}

// TagInfo summarises a tag for listing.
type TagInfo struct {
	Name        string `json:"name"`
	TaskCount   int    `json:"taskCount"`
	Completed   int    `json:"completedTasks"`
	Created     string `json:"created,omitempty"`
	Description string `json:"description,omitempty"`
	Current     bool   `json:"isCurrent"`
}

// ListTags summarises the tags in doc. When pattern is non-empty only tags
// matching the doublestar glob are returned.
func ListTags(doc *Document, current, pattern string) ([]TagInfo, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, tmerrors.InvalidTagName(pattern)
	}
	var infos []TagInfo
	for _, name := range doc.Tags() {
		if pattern != "" {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		td, err := doc.Get(name)
		if err != nil {
			return nil, err
		}
		info := TagInfo{
			Name:        name,
			TaskCount:   len(td.Tasks),
			Created:     td.Metadata.Created,
			Description: td.Metadata.Description,
			Current:     name == current,
		}
		for _, t := range td.Tasks {
			if t.Status == StatusDone {
				info.Completed++
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// AddTag creates an empty tag.
func AddTag(doc *Document, name, description string) error {
	if err := ValidateTagName(name); err != nil {
		return err
	}
	if _, exists := doc.Raw(name); exists {
		return tmerrors.TagExists(name)
	}
	return doc.Set(name, &TagData{
		Tasks: []Task{},
		Metadata: Metadata{
			Created:     Now(),
			Description: description,
		},
	})
}

// CopyTag creates dst holding a copy of src's tasks.
func CopyTag(doc *Document, src, dst, description string) error {
	if err := ValidateTagName(dst); err != nil {
		return err
	}
	if _, exists := doc.Raw(dst); exists {
		return tmerrors.TagExists(dst)
	}
	from, err := doc.Get(src)
	if err != nil {
		return err
	}
	copied := from.Clone()
	copied.Metadata = Metadata{Created: Now(), Description: description}
	if description == "" {
		copied.Metadata.Description = "Copy of " + src
	}
	return doc.Set(dst, copied)
}

// RenameTag renames a tag and returns the current tag after the rename:
// if the active tag was renamed, the new name becomes current.
func RenameTag(doc *Document, from, to, current string) (string, error) {
	if err := ValidateTagName(to); err != nil {
		return current, err
	}
	if from == DefaultTag {
		return current, tmerrors.InvalidTagName(from).WithCause(errReserved)
	}
	if !doc.Has(from) {
		return current, tmerrors.TagNotFound(from)
	}
	if _, exists := doc.Raw(to); exists {
		return current, tmerrors.TagExists(to)
	}
	doc.Rename(from, to)
	if current == from {
		return to, nil
	}
	return current, nil
}

// DeleteTag removes a tag. Deleting a tag that still has tasks, the current
// tag, or the default tag is refused.
func DeleteTag(doc *Document, name, current string) error {
	if !doc.Has(name) {
		return tmerrors.TagNotFound(name)
	}
	if name == DefaultTag {
		return tmerrors.InvalidTagName(name).WithCause(errReserved)
	}
	if name == current {
		return tmerrors.TagActive(name)
	}
	if n := doc.TaskCount(name); n > 0 {
		return tmerrors.TagNotEmpty(name, n)
	}
	doc.Delete(name)
	return nil
}

// UseTag checks that name exists so it can become the current tag.
func UseTag(doc *Document, name string) error {
	if !doc.Has(name) {
		return tmerrors.TagNotFound(name)
	}
	return nil
}

var errReserved = errors.New("the master tag cannot be renamed or deleted")
