package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/craftpad/craftpad/internal/preview"
	"github.com/craftpad/craftpad/internal/project"
)

// mockStore implements Store in memory with call counting and injectable
// failures. A non-nil block channel makes the corresponding write hang
// until the channel is closed, to exercise in-flight save behavior.
type mockStore struct {
	mu          sync.Mutex
	records     map[string]project.Record
	nextID      int
	fetchCalls  int
	createCalls int
	updateCalls int
	deleteCalls int
	createErr   error
	updateErr   error
	blockCreate chan struct{}
	blockUpdate chan struct{}
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]project.Record)}
}

func (m *mockStore) FetchProject(ctx context.Context, id string) (project.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	rec, ok := m.records[id]
	if !ok {
		return project.Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *mockStore) CreateProject(ctx context.Context, rec project.Record) (string, error) {
	m.mu.Lock()
	block := m.blockCreate
	m.mu.Unlock()
	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return "", m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("proj-%d", m.nextID)
	rec.ID = id
	m.records[id] = rec
	return id, nil
}

func (m *mockStore) UpdateProject(ctx context.Context, id string, rec project.Record) error {
	m.mu.Lock()
	block := m.blockUpdate
	m.mu.Unlock()
	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	rec.ID = id
	m.records[id] = rec
	return nil
}

func (m *mockStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockStore) ListProjects(ctx context.Context, ownerID string) ([]project.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []project.Record
	for _, rec := range m.records {
		if rec.OwnerID == ownerID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func seedProject(t *testing.T, store *mockStore, files map[string]string) string {
	t.Helper()
	now := time.Now()
	id, err := store.CreateProject(context.Background(), project.Record{
		OwnerID:   "user-1",
		Name:      "Seeded",
		Type:      project.TypeWeb,
		Files:     files,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return id
}

func TestLoadProject(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{
		"index.html": "<h1>hi</h1>",
		"style.css":  "body{}",
	})

	c := NewController(store)
	if err := c.LoadProject(context.Background(), id); err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}

	snap := c.Snapshot()
	if snap.Phase != PhaseReady {
		t.Errorf("Phase = %v, want Ready", snap.Phase)
	}
	if snap.Selected != "index.html" {
		t.Errorf("Selected = %q, want index.html", snap.Selected)
	}
	if snap.Dirty {
		t.Error("Dirty = true after load")
	}
	if snap.ProjectID != id {
		t.Errorf("ProjectID = %q, want %q", snap.ProjectID, id)
	}
}

func TestLoadProjectSelectionFallback(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"zeta.js": "1", "alpha.js": "2"})

	c := NewController(store)
	if err := c.LoadProject(context.Background(), id); err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	// No index.html: first file in display order wins.
	if got := c.Snapshot().Selected; got != "alpha.js" {
		t.Errorf("Selected = %q, want alpha.js", got)
	}
}

func TestLoadProjectNotFound(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "<p>keep me</p>"})

	c := NewController(store)
	if err := c.LoadProject(context.Background(), id); err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}

	err := c.LoadProject(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadProject(missing) error = %v, want ErrNotFound", err)
	}

	// The prior document stays active.
	snap := c.Snapshot()
	if snap.Phase != PhaseReady || snap.ProjectID != id {
		t.Errorf("controller state disturbed by failed load: %+v", snap)
	}
}

func TestLoadProjectMalformedRecord(t *testing.T) {
	store := newMockStore()
	store.records["bad"] = project.Record{ID: "bad", Name: "", Files: map[string]string{}}

	c := NewController(store)
	err := c.LoadProject(context.Background(), "bad")
	if !errors.Is(err, project.ErrMalformedRecord) {
		t.Fatalf("LoadProject(malformed) error = %v, want ErrMalformedRecord", err)
	}
	if got := c.Snapshot().Phase; got != PhaseEmpty {
		t.Errorf("Phase = %v after failed load, want Empty", got)
	}
}

func TestSelectFileUnknown(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "x"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)

	if err := c.SelectFile("missing.js"); !errors.Is(err, ErrUnknownFile) {
		t.Fatalf("SelectFile(missing) error = %v, want ErrUnknownFile", err)
	}
	if got := c.Snapshot().Selected; got != "index.html" {
		t.Errorf("Selected = %q after rejected select, want index.html", got)
	}
}

func TestEditCurrentFile(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "old"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)

	if err := c.EditCurrentFile("<h1>new</h1>"); err != nil {
		t.Fatalf("EditCurrentFile() error = %v", err)
	}

	snap := c.Snapshot()
	if !snap.Dirty {
		t.Error("Dirty = false after edit")
	}
	out, err := c.Preview()
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if !strings.Contains(out, "<h1>new</h1>") {
		t.Errorf("preview stale after edit:\n%s", out)
	}
	if store.updateCalls != 0 {
		t.Errorf("edit reached the store: %d update calls", store.updateCalls)
	}
}

func TestEditWithoutProject(t *testing.T) {
	store := newMockStore()
	c := NewController(store)
	if err := c.EditCurrentFile("x"); !errors.Is(err, ErrNoProject) {
		t.Fatalf("EditCurrentFile() with no project error = %v, want ErrNoProject", err)
	}
}

func TestEditWithoutSelection(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "x"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)
	c.DeleteFile("index.html")

	if err := c.EditCurrentFile("y"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("EditCurrentFile() with no selection error = %v, want ErrNoSelection", err)
	}
}

func TestSaveCleanDocumentIsNoop(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "x"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)

	before := store.updateCalls + store.createCalls
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("Save() on clean doc error = %v", err)
	}
	if after := store.updateCalls + store.createCalls; after != before {
		t.Errorf("clean save contacted the store: %d calls", after-before)
	}
}

func TestSaveDraftAssignsIdentifier(t *testing.T) {
	store := newMockStore()
	c := NewController(store)

	if err := c.NewDraft("user-1", "My Draft", project.TypeWeb); err != nil {
		t.Fatalf("NewDraft() error = %v", err)
	}
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	snap := c.Snapshot()
	if snap.Draft {
		t.Error("Draft = true after successful save")
	}
	if snap.Dirty {
		t.Error("Dirty = true after successful save")
	}
	if snap.ProjectID == "" {
		t.Error("no identifier assigned by save")
	}
	if store.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", store.createCalls)
	}

	// A second save is a no-op: the document is clean.
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if store.createCalls != 1 || store.updateCalls != 0 {
		t.Errorf("clean save wrote again: create=%d update=%d", store.createCalls, store.updateCalls)
	}
}

func TestSaveFailureLeavesDocumentDirty(t *testing.T) {
	store := newMockStore()
	store.createErr = errors.New("connection reset")

	c := NewController(store)
	c.NewDraft("user-1", "Draft", project.TypeWeb)

	err := c.Save(context.Background())
	if !errors.Is(err, ErrRemoteWriteFailed) {
		t.Fatalf("Save() error = %v, want ErrRemoteWriteFailed", err)
	}

	snap := c.Snapshot()
	if !snap.Dirty || !snap.Draft {
		t.Errorf("failed save changed document state: %+v", snap)
	}
	if snap.Phase != PhaseReady {
		t.Errorf("Phase = %v after failed save, want Ready", snap.Phase)
	}

	// The controller stays usable.
	store.createErr = nil
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("Save() after recovery error = %v", err)
	}
}

func TestConcurrentSaveRejectedBusy(t *testing.T) {
	store := newMockStore()
	store.blockCreate = make(chan struct{})

	c := NewController(store)
	c.NewDraft("user-1", "Draft", project.TypeWeb)

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.Save(context.Background()) }()

	// Wait for the first save to reach the store.
	waitFor(t, func() bool { return c.Snapshot().Phase == PhaseSaving })

	if err := c.Save(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Save() error = %v, want ErrBusy", err)
	}
	if err := c.LoadProject(context.Background(), "any"); !errors.Is(err, ErrBusy) {
		t.Errorf("LoadProject() during save error = %v, want ErrBusy", err)
	}

	close(store.blockCreate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Save() error = %v, rejection of the second must not affect it", err)
	}
	if store.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", store.createCalls)
	}
}

func TestEditDuringSaveRedirties(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "v1"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)
	c.EditCurrentFile("v2")

	store.blockUpdate = make(chan struct{})
	saveDone := make(chan error, 1)
	go func() { saveDone <- c.Save(context.Background()) }()
	waitFor(t, func() bool { return c.Snapshot().Phase == PhaseSaving })

	// Edits during an in-flight save are accepted immediately.
	if err := c.EditCurrentFile("v3"); err != nil {
		t.Fatalf("EditCurrentFile() during save error = %v", err)
	}

	close(store.blockUpdate)
	if err := <-saveDone; err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// The save uploaded its snapshot, not the later edit.
	rec, _ := store.FetchProject(context.Background(), id)
	if rec.Files["index.html"] != "v2" {
		t.Errorf("stored content = %q, want the snapshot %q", rec.Files["index.html"], "v2")
	}

	// The later edit re-dirtied the document and the next save carries it.
	if !c.Snapshot().Dirty {
		t.Error("Dirty = false after edit during in-flight save")
	}
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("follow-up Save() error = %v", err)
	}
	rec, _ = store.FetchProject(context.Background(), id)
	if rec.Files["index.html"] != "v3" {
		t.Errorf("stored content = %q after follow-up save, want %q", rec.Files["index.html"], "v3")
	}
}

func TestDeleteFileReassignsSelection(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "only"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)

	if err := c.DeleteFile("index.html"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}

	snap := c.Snapshot()
	if snap.Selected != "" {
		t.Errorf("Selected = %q after deleting the only file, want none", snap.Selected)
	}
	if len(snap.Files) != 0 {
		t.Errorf("Files = %v, want empty", snap.Files)
	}

	// All three entry files are absent: the preview is the minimal
	// empty-bodied document.
	out, err := c.Preview()
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if !strings.Contains(out, "<style></style>") || !strings.Contains(out, "<script></script>") {
		t.Errorf("preview of empty project not minimal:\n%s", out)
	}
}

func TestDeleteFileUnknown(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "x"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)

	if err := c.DeleteFile("ghost.js"); !errors.Is(err, ErrUnknownFile) {
		t.Errorf("DeleteFile(absent) error = %v, want ErrUnknownFile", err)
	}
	if c.Snapshot().Dirty {
		t.Error("rejected delete marked the document dirty")
	}
}

func TestCreateFileSelectsWhenNothingSelected(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "x"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)
	c.DeleteFile("index.html")

	if err := c.CreateFile("notes.md", "# notes"); err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if got := c.Snapshot().Selected; got != "notes.md" {
		t.Errorf("Selected = %q, want notes.md", got)
	}
}

func TestPreviewNotPreviewable(t *testing.T) {
	store := newMockStore()
	c := NewController(store)
	c.NewDraft("user-1", "Script", project.TypePython)

	if _, err := c.Preview(); !errors.Is(err, preview.ErrNotPreviewable) {
		t.Errorf("Preview() error = %v, want ErrNotPreviewable", err)
	}

	// The failure is not fatal: edits still work.
	if err := c.EditCurrentFile("print(2)"); err != nil {
		t.Fatalf("EditCurrentFile() error = %v", err)
	}
}

func TestDuplicateToDraft(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "x"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)
	if err := c.DuplicateToDraft(); err != nil {
		t.Fatalf("DuplicateToDraft() error = %v", err)
	}

	snap := c.Snapshot()
	if !snap.Draft || !snap.Dirty {
		t.Errorf("duplicate not a dirty draft: %+v", snap)
	}
	if snap.Name != "Seeded (Copy)" {
		t.Errorf("Name = %q, want Seeded (Copy)", snap.Name)
	}
}

func TestRequestDelete(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "x"})

	c := NewController(store)
	c.LoadProject(context.Background(), id)
	if err := c.RequestDelete(context.Background()); err != nil {
		t.Fatalf("RequestDelete() error = %v", err)
	}

	if got := c.Snapshot().Phase; got != PhaseEmpty {
		t.Errorf("Phase = %v after delete, want Empty", got)
	}
	if _, err := store.FetchProject(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("record still in store after delete")
	}
}

func TestObserverNotified(t *testing.T) {
	store := newMockStore()
	id := seedProject(t, store, map[string]string{"index.html": "x"})

	c := NewController(store)
	var snaps []Snapshot
	c.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	c.LoadProject(context.Background(), id)
	c.EditCurrentFile("y")

	if len(snaps) != 2 {
		t.Fatalf("observer called %d times, want 2", len(snaps))
	}
	if snaps[0].Phase != PhaseReady || snaps[0].Dirty {
		t.Errorf("first snapshot = %+v", snaps[0])
	}
	if !snaps[1].Dirty {
		t.Errorf("second snapshot not dirty: %+v", snaps[1])
	}
}

func TestDraftSaveLoadRoundTrip(t *testing.T) {
	store := newMockStore()

	c := NewController(store)
	if err := c.NewDraft("user-1", "Round Trip", project.TypeWeb); err != nil {
		t.Fatalf("NewDraft() error = %v", err)
	}
	if err := c.SelectFile("script.js"); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	if err := c.EditCurrentFile("console.log(1)"); err != nil {
		t.Fatalf("EditCurrentFile() error = %v", err)
	}
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	id := c.Snapshot().ProjectID
	if id == "" {
		t.Fatal("save assigned no identifier")
	}

	fresh := NewController(store)
	if err := fresh.LoadProject(context.Background(), id); err != nil {
		t.Fatalf("LoadProject() in fresh controller error = %v", err)
	}
	snap := fresh.Snapshot()
	if snap.Dirty {
		t.Error("Dirty = true after loading a saved project")
	}
	content, err := fresh.FileContent("script.js")
	if err != nil {
		t.Fatalf("FileContent() error = %v", err)
	}
	if content != "console.log(1)" {
		t.Errorf("script.js = %q, want console.log(1)", content)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
