package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/craftpad/craftpad/internal/project"
	"github.com/craftpad/craftpad/internal/workspace"
)

// Store implements project persistence backed by SQLite. Files are stored
// as a JSON object in a TEXT column.
type Store struct {
	db *DB
}

// NewStore creates a SQLite-backed project store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// FetchProject retrieves a record by ID.
func (s *Store) FetchProject(ctx context.Context, id string) (project.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, type, files, created_at, updated_at
		FROM projects WHERE id = ?`, id)

	var rec project.Record
	var filesJSON string
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.Type, &filesJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.Record{}, workspace.ErrNotFound
		}
		return project.Record{}, fmt.Errorf("scan project: %w", err)
	}

	if err := json.Unmarshal([]byte(filesJSON), &rec.Files); err != nil {
		return project.Record{}, fmt.Errorf("unmarshal files: %w", err)
	}
	return rec, nil
}

// CreateProject inserts a record under a freshly assigned identifier.
func (s *Store) CreateProject(ctx context.Context, rec project.Record) (string, error) {
	files, err := json.Marshal(rec.Files)
	if err != nil {
		return "", fmt.Errorf("marshal files: %w", err)
	}

	rec.ID = uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, name, type, files, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Name, rec.Type, string(files), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}
	return rec.ID, nil
}

// UpdateProject overwrites an existing record.
func (s *Store) UpdateProject(ctx context.Context, id string, rec project.Record) error {
	files, err := json.Marshal(rec.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET owner_id = ?, name = ?, type = ?, files = ?, updated_at = ?
		WHERE id = ?`,
		rec.OwnerID, rec.Name, rec.Type, string(files), rec.UpdatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// DeleteProject removes a record.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// ListProjects returns an owner's records, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]project.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, type, files, created_at, updated_at
		FROM projects WHERE owner_id = ? ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var recs []project.Record
	for rows.Next() {
		var rec project.Record
		var filesJSON string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.Type, &filesJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		if err := json.Unmarshal([]byte(filesJSON), &rec.Files); err != nil {
			return nil, fmt.Errorf("unmarshal files: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
