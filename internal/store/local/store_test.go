package local

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/craftpad/craftpad/internal/project"
	"github.com/craftpad/craftpad/internal/workspace"
)

func testRecord(owner, name string, updated time.Time) project.Record {
	return project.Record{
		OwnerID:   owner,
		Name:      name,
		Type:      project.TypeWeb,
		Files:     map[string]string{"index.html": "<h1>" + name + "</h1>"},
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "subdir", "nested")

	store, err := NewStore(newDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store == nil {
		t.Fatal("NewStore() returned nil")
	}
}

func TestStore_Create_Fetch(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ctx := context.Background()

	id, err := store.CreateProject(ctx, testRecord("user-1", "First", time.Now()))
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if id == "" {
		t.Fatal("CreateProject() assigned no identifier")
	}

	rec, err := store.FetchProject(ctx, id)
	if err != nil {
		t.Fatalf("FetchProject() error = %v", err)
	}
	if rec.ID != id {
		t.Errorf("ID = %v, want %v", rec.ID, id)
	}
	if rec.Name != "First" {
		t.Errorf("Name = %v, want First", rec.Name)
	}
	if rec.Files["index.html"] != "<h1>First</h1>" {
		t.Errorf("Files = %v", rec.Files)
	}
}

func TestStore_Fetch_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	_, err := store.FetchProject(context.Background(), "missing")
	if !errors.Is(err, workspace.ErrNotFound) {
		t.Errorf("FetchProject() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Update(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ctx := context.Background()

	id, _ := store.CreateProject(ctx, testRecord("user-1", "Before", time.Now()))

	rec, _ := store.FetchProject(ctx, id)
	rec.Name = "After"
	rec.Files["script.js"] = "console.log(1)"
	if err := store.UpdateProject(ctx, id, rec); err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}

	got, _ := store.FetchProject(ctx, id)
	if got.Name != "After" {
		t.Errorf("Name = %v, want After", got.Name)
	}
	if got.Files["script.js"] != "console.log(1)" {
		t.Errorf("Files = %v", got.Files)
	}
}

func TestStore_Update_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	err := store.UpdateProject(context.Background(), "missing", testRecord("user-1", "X", time.Now()))
	if !errors.Is(err, workspace.ErrNotFound) {
		t.Errorf("UpdateProject() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ctx := context.Background()

	id, _ := store.CreateProject(ctx, testRecord("user-1", "Doomed", time.Now()))
	if err := store.DeleteProject(ctx, id); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	if _, err := store.FetchProject(ctx, id); !errors.Is(err, workspace.ErrNotFound) {
		t.Errorf("FetchProject() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteProject(ctx, id); !errors.Is(err, workspace.ErrNotFound) {
		t.Errorf("second DeleteProject() error = %v, want ErrNotFound", err)
	}
}

func TestStore_List_FiltersAndOrders(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	store.CreateProject(ctx, testRecord("user-1", "Old", base))
	store.CreateProject(ctx, testRecord("user-1", "New", base.Add(time.Minute)))
	store.CreateProject(ctx, testRecord("user-2", "Other", base))

	recs, err := store.ListProjects(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ListProjects() returned %d records, want 2", len(recs))
	}
	if recs[0].Name != "New" || recs[1].Name != "Old" {
		t.Errorf("order = [%v, %v], want [New, Old]", recs[0].Name, recs[1].Name)
	}
}

func TestStore_List_Empty(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	recs, err := store.ListProjects(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("ListProjects() returned %d records, want 0", len(recs))
	}
}
