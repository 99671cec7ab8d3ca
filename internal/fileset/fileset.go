package fileset

import (
	"errors"
	"sort"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("file name must not be empty")
)

// FileSet is an ordered mapping of file names to text content. Names are
// opaque strings, unique within the set; insertion order is preserved for
// display. A FileSet is exclusively owned by one project document and is
// not safe for concurrent use.
type FileSet struct {
	order   []string
	content map[string]string
}

// New returns an empty FileSet.
func New() *FileSet {
	return &FileSet{content: make(map[string]string)}
}

// FromMap builds a FileSet from an unordered map, such as a remote record's
// files field. Names are sorted so hydration order is deterministic.
func FromMap(files map[string]string) *FileSet {
	fs := New()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" {
			continue
		}
		fs.order = append(fs.order, name)
		fs.content[name] = files[name]
	}
	return fs
}

// Get returns the stored content for name, or ErrNotFound.
func (fs *FileSet) Get(name string) (string, error) {
	content, ok := fs.content[name]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

// GetOrEmpty returns the stored content, or the empty string when the file
// is absent. Preview composition treats missing entry files this way.
func (fs *FileSet) GetOrEmpty(name string) string {
	return fs.content[name]
}

// Set inserts or overwrites a file. Content may be empty; an empty name is
// rejected. Overwriting keeps the file's position in the order, inserting
// appends.
func (fs *FileSet) Set(name, content string) error {
	if name == "" {
		return ErrInvalidName
	}
	if _, exists := fs.content[name]; !exists {
		fs.order = append(fs.order, name)
	}
	fs.content[name] = content
	return nil
}

// Remove deletes a file if present. Removing an absent file is a no-op.
func (fs *FileSet) Remove(name string) {
	if _, exists := fs.content[name]; !exists {
		return
	}
	delete(fs.content, name)
	for i, n := range fs.order {
		if n == name {
			fs.order = append(fs.order[:i], fs.order[i+1:]...)
			break
		}
	}
}

// Has reports whether name is present.
func (fs *FileSet) Has(name string) bool {
	_, ok := fs.content[name]
	return ok
}

// Len returns the number of files.
func (fs *FileSet) Len() int {
	return len(fs.order)
}

// Names returns the file names in insertion order. The returned slice is a
// copy; repeated calls yield identical results until the next mutation.
func (fs *FileSet) Names() []string {
	names := make([]string, len(fs.order))
	copy(names, fs.order)
	return names
}

// Clone returns a deep copy sharing no mutable state with the original.
func (fs *FileSet) Clone() *FileSet {
	clone := &FileSet{
		order:   make([]string, len(fs.order)),
		content: make(map[string]string, len(fs.content)),
	}
	copy(clone.order, fs.order)
	for name, content := range fs.content {
		clone.content[name] = content
	}
	return clone
}

// AsMap returns a copy of the contents keyed by file name, for marshalling
// into a persisted record.
func (fs *FileSet) AsMap() map[string]string {
	m := make(map[string]string, len(fs.content))
	for name, content := range fs.content {
		m[name] = content
	}
	return m
}
