package project

import (
	"errors"
	"fmt"
	"time"

	"github.com/craftpad/craftpad/internal/fileset"
)

// Known project types. The field is an open string: unknown values pass
// through untouched so new types added by the platform don't break older
// records.
const (
	TypeWeb      = "web"
	TypeReact    = "react"
	TypePython   = "python"
	TypeUploaded = "uploaded"
)

var (
	ErrInvalidName     = errors.New("project name must not be empty")
	ErrMalformedRecord = errors.New("malformed project record")
)

// Document is one user project: identity, metadata, and the FileSet backing
// the editor. The Dirty flag tracks whether local state has diverged from
// the last successful save or load.
type Document struct {
	ID        string // empty for an unsaved draft
	OwnerID   string
	Name      string
	Type      string
	Files     *fileset.FileSet
	CreatedAt time.Time
	UpdatedAt time.Time
	Dirty     bool
}

// NewDraft creates a fresh draft with the template FileSet for the given
// type. Unknown types fall back to the web template. The draft has no
// identifier until the first successful save assigns one.
func NewDraft(ownerID, name, typ string) (*Document, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	now := time.Now()
	return &Document{
		OwnerID:   ownerID,
		Name:      name,
		Type:      typ,
		Files:     DefaultFiles(typ),
		CreatedAt: now,
		UpdatedAt: now,
		Dirty:     true,
	}, nil
}

// Hydrate builds a Document from a remote record. Fields map 1:1 and the
// result is clean. Records missing an identifier, name, or files fail with
// ErrMalformedRecord.
func Hydrate(rec Record) (*Document, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("%w: missing identifier", ErrMalformedRecord)
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrMalformedRecord)
	}
	if rec.Files == nil {
		return nil, fmt.Errorf("%w: missing files", ErrMalformedRecord)
	}
	return &Document{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		Name:      rec.Name,
		Type:      rec.Type,
		Files:     fileset.FromMap(rec.Files),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Dirty:     false,
	}, nil
}

// IsDraft reports whether the document has never been saved.
func (d *Document) IsDraft() bool {
	return d.ID == ""
}

// ApplyEdit writes content to a file and marks the document dirty.
func (d *Document) ApplyEdit(filename, content string) error {
	if err := d.Files.Set(filename, content); err != nil {
		return err
	}
	d.touch()
	return nil
}

// RemoveFile deletes a file and marks the document dirty. Removing an
// absent file fails with fileset.ErrNotFound.
func (d *Document) RemoveFile(filename string) error {
	if !d.Files.Has(filename) {
		return fileset.ErrNotFound
	}
	d.Files.Remove(filename)
	d.touch()
	return nil
}

// Rename changes the project name and marks the document dirty.
func (d *Document) Rename(newName string) error {
	if newName == "" {
		return ErrInvalidName
	}
	d.Name = newName
	d.touch()
	return nil
}

// MarkSaved records a successful remote write: the identifier is assigned
// if previously unset, UpdatedAt becomes the save time, and the document is
// clean. Calling it twice with the same arguments is idempotent.
func (d *Document) MarkSaved(id string, savedAt time.Time) {
	d.AssignID(id)
	d.UpdatedAt = savedAt
	d.Dirty = false
}

// AssignID sets the identifier if the document doesn't have one yet. The
// identifier is assigned exactly once and never changes afterwards; an
// assignment on a saved document is ignored.
func (d *Document) AssignID(id string) {
	if d.ID == "" {
		d.ID = id
	}
}

// Duplicate returns a deep copy as a fresh draft: no identifier, name
// suffixed with " (Copy)", cloned FileSet, fresh timestamps.
func (d *Document) Duplicate() *Document {
	now := time.Now()
	return &Document{
		OwnerID:   d.OwnerID,
		Name:      d.Name + " (Copy)",
		Type:      d.Type,
		Files:     d.Files.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
		Dirty:     true,
	}
}

// Record returns the persisted shape of the document. The files map is a
// copy; mutating it does not affect the document.
func (d *Document) Record() Record {
	return Record{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Type:      d.Type,
		Files:     d.Files.AsMap(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// touch marks the document dirty and bumps UpdatedAt. The bump is strictly
// increasing even when two edits land within one clock tick.
func (d *Document) touch() {
	now := time.Now()
	if !now.After(d.UpdatedAt) {
		now = d.UpdatedAt.Add(time.Nanosecond)
	}
	d.UpdatedAt = now
	d.Dirty = true
}
