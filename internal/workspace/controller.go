package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/craftpad/craftpad/internal/fileset"
	"github.com/craftpad/craftpad/internal/preview"
	"github.com/craftpad/craftpad/internal/project"
)

var (
	ErrBusy              = errors.New("a load or save is already in flight")
	ErrNoProject         = errors.New("no project loaded")
	ErrNoSelection       = errors.New("no file selected")
	ErrUnknownFile       = errors.New("file is not part of the project")
	ErrRemoteWriteFailed = errors.New("remote write failed")
)

// Phase is the controller's position in its load/save cycle.
type Phase string

const (
	PhaseEmpty   Phase = "empty"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseSaving  Phase = "saving"
)

// Snapshot is a read-only view of the controller for the presentation
// layer. Files are in display order.
type Snapshot struct {
	Phase     Phase
	ProjectID string
	OwnerID   string
	Name      string
	Type      string
	Files     []string
	Selected  string
	Dirty     bool
	Draft     bool
	UpdatedAt time.Time
}

// Controller drives one editor session: it owns the active project
// document, the file selection, the composed preview, and the save/load
// cycle against the Store. One controller serves one session; the document
// it holds is never shared with another controller.
//
// Loading and Saving are non-reentrant: a second load or save while one is
// in flight fails with ErrBusy instead of queueing. Edits are accepted
// while a save is in flight and re-dirty the document, so they are carried
// by the next save rather than lost.
type Controller struct {
	store Store

	mu         sync.Mutex
	phase      Phase
	doc        *project.Document
	selected   string
	gen        uint64 // bumped on every document mutation
	previewDoc string
	previewErr error
	observers  []func(Snapshot)
}

// NewController creates a controller with no project loaded.
func NewController(store Store) *Controller {
	return &Controller{store: store, phase: PhaseEmpty}
}

// Subscribe registers an observer called with a fresh snapshot after every
// successful mutating operation. Callbacks run synchronously on the
// mutating goroutine, outside the controller's lock.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// LoadProject fetches a record from the store and installs it as the active
// document. On any failure the controller keeps its prior state, including
// a previously loaded document.
func (c *Controller) LoadProject(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.phase == PhaseLoading || c.phase == PhaseSaving {
		c.mu.Unlock()
		return ErrBusy
	}
	prev := c.phase
	c.phase = PhaseLoading
	c.mu.Unlock()

	rec, err := c.store.FetchProject(ctx, id)
	if err != nil {
		c.restorePhase(prev)
		return fmt.Errorf("load project %s: %w", id, err)
	}

	doc, err := project.Hydrate(rec)
	if err != nil {
		c.restorePhase(prev)
		return fmt.Errorf("load project %s: %w", id, err)
	}

	c.mu.Lock()
	c.install(doc)
	c.mu.Unlock()
	c.notify()
	return nil
}

// NewDraft installs a fresh draft as the active document.
func (c *Controller) NewDraft(ownerID, name, typ string) error {
	c.mu.Lock()
	if c.phase == PhaseLoading || c.phase == PhaseSaving {
		c.mu.Unlock()
		return ErrBusy
	}
	doc, err := project.NewDraft(ownerID, name, typ)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.install(doc)
	c.mu.Unlock()
	c.notify()
	return nil
}

// install replaces the active document. Caller holds the lock.
func (c *Controller) install(doc *project.Document) {
	c.doc = doc
	c.phase = PhaseReady
	c.selected = defaultSelection(doc.Files)
	c.gen++
	c.recompose()
}

// SelectFile changes the selected file. Pure state update, no I/O.
func (c *Controller) SelectFile(name string) error {
	c.mu.Lock()
	if err := c.requireDocument(); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.doc.Files.Has(name) {
		c.mu.Unlock()
		return fmt.Errorf("select %s: %w", name, ErrUnknownFile)
	}
	c.selected = name
	c.mu.Unlock()
	c.notify()
	return nil
}

// EditCurrentFile writes content to the selected file. Local-only: nothing
// reaches the store until Save. Edits are accepted during an in-flight save
// and re-dirty the document.
func (c *Controller) EditCurrentFile(content string) error {
	c.mu.Lock()
	if err := c.requireDocument(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.selected == "" {
		c.mu.Unlock()
		return ErrNoSelection
	}
	if err := c.doc.ApplyEdit(c.selected, content); err != nil {
		c.mu.Unlock()
		return err
	}
	c.gen++
	c.recompose()
	c.mu.Unlock()
	c.notify()
	return nil
}

// CreateFile adds a file to the project. When nothing was selected, the new
// file becomes the selection.
func (c *Controller) CreateFile(name, content string) error {
	c.mu.Lock()
	if err := c.requireDocument(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.doc.ApplyEdit(name, content); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.selected == "" {
		c.selected = name
	}
	c.gen++
	c.recompose()
	c.mu.Unlock()
	c.notify()
	return nil
}

// DeleteFile removes a file. Deleting the selected file moves the selection
// to the first remaining file, or clears it when none remain.
func (c *Controller) DeleteFile(name string) error {
	c.mu.Lock()
	if err := c.requireDocument(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.doc.RemoveFile(name); err != nil {
		c.mu.Unlock()
		if errors.Is(err, fileset.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", name, ErrUnknownFile)
		}
		return err
	}
	if c.selected == name {
		c.selected = ""
		if names := c.doc.Files.Names(); len(names) > 0 {
			c.selected = names[0]
		}
	}
	c.gen++
	c.recompose()
	c.mu.Unlock()
	c.notify()
	return nil
}

// Rename changes the project name.
func (c *Controller) Rename(newName string) error {
	c.mu.Lock()
	if err := c.requireDocument(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.doc.Rename(newName); err != nil {
		c.mu.Unlock()
		return err
	}
	c.gen++
	c.mu.Unlock()
	c.notify()
	return nil
}

// Save writes the active document to the store. A clean document saves
// trivially without contacting the store. The record is snapshotted at
// invocation: edits landing while the write is in flight are not uploaded,
// leave the document dirty, and are carried by the next save. Failed writes
// are never retried here; the document stays dirty and the caller decides.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseLoading || c.phase == PhaseSaving {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoProject
	}
	if !c.doc.Dirty {
		c.mu.Unlock()
		return nil
	}
	rec := c.doc.Record()
	snapGen := c.gen
	isDraft := c.doc.IsDraft()
	c.phase = PhaseSaving
	c.mu.Unlock()

	var newID string
	var err error
	if isDraft {
		newID, err = c.store.CreateProject(ctx, rec)
	} else {
		err = c.store.UpdateProject(ctx, rec.ID, rec)
	}

	c.mu.Lock()
	c.phase = PhaseReady
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
	}
	if c.gen == snapGen {
		c.doc.MarkSaved(newID, rec.UpdatedAt)
	} else {
		// Edits landed after the snapshot; keep the document dirty so the
		// next save uploads them, but adopt a newly assigned identifier.
		c.doc.AssignID(newID)
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// RequestDelete asks the store to remove the backing record, then closes
// the project locally.
func (c *Controller) RequestDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseLoading || c.phase == PhaseSaving {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoProject
	}
	id := c.doc.ID
	c.mu.Unlock()

	if id != "" {
		if err := c.store.DeleteProject(ctx, id); err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
	}

	c.mu.Lock()
	c.clear()
	c.mu.Unlock()
	c.notify()
	return nil
}

// DuplicateToDraft replaces the active document with an unsaved copy of
// itself.
func (c *Controller) DuplicateToDraft() error {
	c.mu.Lock()
	if c.phase == PhaseLoading || c.phase == PhaseSaving {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoProject
	}
	c.install(c.doc.Duplicate())
	c.mu.Unlock()
	c.notify()
	return nil
}

// CloseProject drops the active document without touching the store.
func (c *Controller) CloseProject() error {
	c.mu.Lock()
	if c.phase == PhaseLoading || c.phase == PhaseSaving {
		c.mu.Unlock()
		return ErrBusy
	}
	c.clear()
	c.mu.Unlock()
	c.notify()
	return nil
}

// clear resets to the empty phase. Caller holds the lock.
func (c *Controller) clear() {
	c.doc = nil
	c.phase = PhaseEmpty
	c.selected = ""
	c.previewDoc = ""
	c.previewErr = nil
	c.gen++
}

// SelectedFile returns the selected file name and its content.
func (c *Controller) SelectedFile() (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireDocument(); err != nil {
		return "", "", err
	}
	if c.selected == "" {
		return "", "", ErrNoSelection
	}
	content, err := c.doc.Files.Get(c.selected)
	if err != nil {
		return "", "", err
	}
	return c.selected, content, nil
}

// FileContent returns the content of any file in the project.
func (c *Controller) FileContent(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireDocument(); err != nil {
		return "", err
	}
	content, err := c.doc.Files.Get(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, ErrUnknownFile)
	}
	return content, nil
}

// Preview returns the composed preview document. The composition is
// refreshed eagerly after every file mutation, so it is never stale
// relative to the entry files.
func (c *Controller) Preview() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireDocument(); err != nil {
		return "", err
	}
	return c.previewDoc, c.previewErr
}

// Snapshot returns a read-only view of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{Phase: c.phase, Selected: c.selected}
	if c.doc != nil {
		snap.ProjectID = c.doc.ID
		snap.OwnerID = c.doc.OwnerID
		snap.Name = c.doc.Name
		snap.Type = c.doc.Type
		snap.Files = c.doc.Files.Names()
		snap.Dirty = c.doc.Dirty
		snap.Draft = c.doc.IsDraft()
		snap.UpdatedAt = c.doc.UpdatedAt
	}
	return snap
}

// requireDocument checks that a document is active and no load is
// replacing it. Caller holds the lock.
func (c *Controller) requireDocument() error {
	if c.phase == PhaseLoading {
		return ErrBusy
	}
	if c.doc == nil {
		return ErrNoProject
	}
	return nil
}

// recompose refreshes the cached preview. Caller holds the lock.
func (c *Controller) recompose() {
	c.previewDoc, c.previewErr = preview.Compose(c.doc)
}

func (c *Controller) restorePhase(prev Phase) {
	c.mu.Lock()
	c.phase = prev
	c.mu.Unlock()
}

// notify delivers a fresh snapshot to all observers, outside the lock.
func (c *Controller) notify() {
	c.mu.Lock()
	observers := make([]func(Snapshot), len(c.observers))
	copy(observers, c.observers)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}

// defaultSelection picks index.html when present, otherwise the first file,
// otherwise nothing.
func defaultSelection(files *fileset.FileSet) string {
	if files.Has(preview.EntryHTML) {
		return preview.EntryHTML
	}
	if names := files.Names(); len(names) > 0 {
		return names[0]
	}
	return ""
}
