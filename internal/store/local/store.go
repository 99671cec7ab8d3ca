// Package local provides JSON-file persistence for project records, one
// file per project under a base directory. It backs offline use and the
// CLI's export commands.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/craftpad/craftpad/internal/project"
	"github.com/craftpad/craftpad/internal/workspace"
)

// Store provides thread-safe JSON file storage for project records.
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates a local store rooted at basePath. The projects
// directory is created if it does not exist.
func NewStore(basePath string) (*Store, error) {
	dir := filepath.Join(basePath, "projects")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// FetchProject reads one record.
func (s *Store) FetchProject(ctx context.Context, id string) (project.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

// CreateProject assigns a fresh identifier and writes the record.
func (s *Store) CreateProject(ctx context.Context, rec project.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.New().String()
	if err := s.write(rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// UpdateProject overwrites an existing record. Updating a record that was
// never created fails with workspace.ErrNotFound.
func (s *Store) UpdateProject(ctx context.Context, id string, rec project.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return workspace.ErrNotFound
		}
		return fmt.Errorf("stat project file: %w", err)
	}
	rec.ID = id
	return s.write(rec)
}

// DeleteProject removes a record file.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return workspace.ErrNotFound
		}
		return fmt.Errorf("remove project file: %w", err)
	}
	return nil
}

// ListProjects returns an owner's records, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]project.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.basePath, "projects")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []project.Record{}, nil
		}
		return nil, fmt.Errorf("read projects directory: %w", err)
	}

	var recs []project.Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, err := s.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		if rec.OwnerID == ownerID {
			recs = append(recs, rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
	return recs, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.basePath, "projects", id+".json")
}

func (s *Store) read(id string) (project.Record, error) {
	file, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return project.Record{}, workspace.ErrNotFound
		}
		return project.Record{}, fmt.Errorf("open project file: %w", err)
	}
	defer file.Close()

	var rec project.Record
	if err := json.NewDecoder(file).Decode(&rec); err != nil {
		return project.Record{}, fmt.Errorf("decode project json: %w", err)
	}
	return rec, nil
}

func (s *Store) write(rec project.Record) error {
	file, err := os.Create(s.path(rec.ID))
	if err != nil {
		return fmt.Errorf("create project file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rec); err != nil {
		return fmt.Errorf("encode project json: %w", err)
	}
	return nil
}
