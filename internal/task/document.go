package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// DefaultTag is the tag used when none is selected.
const DefaultTag = "master"

// TimestampLayout is the ISO-8601 layout used for metadata timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Now returns the current UTC time formatted with TimestampLayout.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// Metadata describes a tag.
type Metadata struct {
	Created     string `json:"created,omitempty"`
	Updated     string `json:"updated,omitempty"`
	Description string `json:"description,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var metadataKeys = map[string]bool{"created": true, "updated": true, "description": true}

// MarshalJSON appends unknown metadata keys after the known ones.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	data, err := marshalText(alias(m))
	if err != nil {
		return nil, err
	}
	return appendExtra(data, m.Extra)
}

// UnmarshalJSON keeps unknown metadata keys in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type alias Metadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, metadataKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*m = Metadata(a)
	return nil
}

// TagData is one tag's slice of the store: its tasks and metadata.
type TagData struct {
	Tasks    []Task   `json:"tasks"`
	Metadata Metadata `json:"metadata"`

	Extra map[string]json.RawMessage `json:"-"`
}

var tagDataKeys = map[string]bool{"tasks": true, "metadata": true}

// MarshalJSON emits an empty task list rather than null.
func (d TagData) MarshalJSON() ([]byte, error) {
	type alias TagData
	a := alias(d)
	if a.Tasks == nil {
		a.Tasks = []Task{}
	}
	data, err := marshalText(a)
	if err != nil {
		return nil, err
	}
	return appendExtra(data, d.Extra)
}

// UnmarshalJSON keeps unknown tag keys in Extra.
func (d *TagData) UnmarshalJSON(data []byte) error {
	type alias TagData
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, tagDataKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*d = TagData(a)
	return nil
}

// Clone returns a deep copy.
func (d *TagData) Clone() *TagData {
	out := &TagData{
		Metadata: d.Metadata,
		Extra:    cloneExtra(d.Extra),
	}
	out.Metadata.Extra = cloneExtra(d.Metadata.Extra)
	if d.Tasks != nil {
		out.Tasks = make([]Task, len(d.Tasks))
		for i, t := range d.Tasks {
			out.Tasks[i] = t.Clone()
		}
	}
	return out
}

// Shape describes the top-level layout of a tasks file.
type Shape int

const (
	ShapeEmpty Shape = iota
	// ShapeLegacy is the untagged form {"tasks": [...]}.
	ShapeLegacy
	// ShapeTagged is {"<tag>": {"tasks": [...]}, ...}.
	ShapeTagged
	ShapeInvalid
)

// DetectShape inspects raw JSON without decoding it.
func DetectShape(data []byte) Shape {
	if len(bytes.TrimSpace(data)) == 0 {
		return ShapeEmpty
	}
	if !gjson.ValidBytes(data) {
		return ShapeInvalid
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return ShapeInvalid
	}
	// A tag may itself be named "tasks"; only an array marks the legacy form.
	tasks := root.Get("tasks")
	if !tasks.Exists() {
		return ShapeTagged
	}
	if tasks.IsArray() {
		return ShapeLegacy
	}
	hasTag := false
	root.ForEach(func(_, value gjson.Result) bool {
		hasTag = value.Get("tasks").IsArray()
		return !hasTag
	})
	if !hasTag {
		return ShapeInvalid
	}
	return ShapeTagged
}

// Document is the full tagged tasks file. Keys keep their file order and
// values are held as raw JSON, so tags that are never decoded are written
// back exactly as read.
type Document struct {
	keys   []string
	values map[string]json.RawMessage
	legacy bool
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{values: make(map[string]json.RawMessage)}
}

// ParseDocument parses a tasks file in either the tagged or the legacy
// untagged shape. A legacy file is presented as a single "master" tag.
func ParseDocument(data []byte) (*Document, error) {
	doc := NewDocument()
	switch DetectShape(data) {
	case ShapeEmpty:
		return doc, nil
	case ShapeInvalid:
		return nil, fmt.Errorf("tasks file is not a JSON object")
	case ShapeLegacy:
		root := gjson.ParseBytes(data)
		doc.legacy = true
		doc.put(DefaultTag, json.RawMessage(root.Raw))
		return doc, nil
	}

	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		doc.put(key.String(), json.RawMessage(value.Raw))
		return true
	})
	return doc, nil
}

func (d *Document) put(key string, raw json.RawMessage) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = raw
}

// IsLegacy reports whether the document was parsed from the untagged shape.
func (d *Document) IsLegacy() bool {
	return d.legacy
}

// Keys returns every top-level key in file order, including keys that are
// not tags.
func (d *Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Tags returns the tag names in file order. A key is a tag when its value is
// an object with a tasks array.
func (d *Document) Tags() []string {
	var tags []string
	for _, k := range d.keys {
		if isTagValue(d.values[k]) {
			tags = append(tags, k)
		}
	}
	return tags
}

func isTagValue(raw json.RawMessage) bool {
	return gjson.GetBytes(raw, "tasks").IsArray()
}

// Has reports whether tag exists as a tag.
func (d *Document) Has(tag string) bool {
	raw, ok := d.values[tag]
	return ok && isTagValue(raw)
}

// Raw returns the undecoded value stored under key.
func (d *Document) Raw(key string) (json.RawMessage, bool) {
	raw, ok := d.values[key]
	return raw, ok
}

// TaskCount returns the number of top-level tasks in tag without decoding it.
func (d *Document) TaskCount(tag string) int {
	raw, ok := d.values[tag]
	if !ok {
		return 0
	}
	return int(gjson.GetBytes(raw, "tasks.#").Int())
}

// Get decodes a tag.
func (d *Document) Get(tag string) (*TagData, error) {
	raw, ok := d.values[tag]
	if !ok || !isTagValue(raw) {
		return nil, tmerrors.TagNotFound(tag)
	}
	var td TagData
	if err := json.Unmarshal(raw, &td); err != nil {
		return nil, fmt.Errorf("decode tag %s: %w", tag, err)
	}
	return &td, nil
}

// Set encodes data under tag, appending the tag if new. Other keys are not
// touched.
func (d *Document) Set(tag string, data *TagData) error {
	raw, err := marshalText(data)
	if err != nil {
		return fmt.Errorf("encode tag %s: %w", tag, err)
	}
	d.put(tag, raw)
	return nil
}

// Delete removes a key. It returns false if the key was absent.
func (d *Document) Delete(key string) bool {
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Rename moves the value under from to to, keeping its position.
func (d *Document) Rename(from, to string) bool {
	raw, ok := d.values[from]
	if !ok {
		return false
	}
	if _, exists := d.values[to]; exists {
		return false
	}
	delete(d.values, from)
	d.values[to] = raw
	for i, k := range d.keys {
		if k == from {
			d.keys[i] = to
			break
		}
	}
	return true
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	return len(d.keys)
}

// MarshalJSON writes keys in order with their raw values. The result is
// always the tagged shape.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := marshalText(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(d.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Clone returns an independent copy.
func (d *Document) Clone() *Document {
	out := NewDocument()
	out.legacy = d.legacy
	for _, k := range d.keys {
		out.put(k, append(json.RawMessage(nil), d.values[k]...))
	}
	return out
}
