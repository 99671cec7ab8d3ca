// Package postgres provides PostgreSQL-backed persistence for project
// records, the backend for multi-user deployments. Files are stored as a
// jsonb column.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftpad/craftpad/internal/project"
	"github.com/craftpad/craftpad/internal/workspace"
)

// Schema is the DDL the store expects. Applied by the daemon at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
    id         UUID PRIMARY KEY,
    owner_id   TEXT NOT NULL,
    name       TEXT NOT NULL,
    type       TEXT NOT NULL,
    files      JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id, updated_at DESC);
`

// Store implements project persistence using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a PostgreSQL-backed project store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool against the given URL and ensures the schema.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// FetchProject retrieves a record by ID.
func (s *Store) FetchProject(ctx context.Context, id string) (project.Record, error) {
	query := `
		SELECT id, owner_id, name, type, files, created_at, updated_at
		FROM projects WHERE id = $1
	`
	return s.scanRecord(s.pool.QueryRow(ctx, query, id))
}

// CreateProject inserts a record under a freshly assigned identifier.
func (s *Store) CreateProject(ctx context.Context, rec project.Record) (string, error) {
	filesJSON, err := json.Marshal(rec.Files)
	if err != nil {
		return "", fmt.Errorf("marshal files: %w", err)
	}

	rec.ID = uuid.New().String()
	query := `
		INSERT INTO projects (id, owner_id, name, type, files, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		rec.ID, rec.OwnerID, rec.Name, rec.Type, filesJSON, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}
	return rec.ID, nil
}

// UpdateProject overwrites an existing record.
func (s *Store) UpdateProject(ctx context.Context, id string, rec project.Record) error {
	filesJSON, err := json.Marshal(rec.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	query := `
		UPDATE projects SET owner_id = $2, name = $3, type = $4, files = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.pool.Exec(ctx, query,
		id, rec.OwnerID, rec.Name, rec.Type, filesJSON, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// DeleteProject removes a record.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// ListProjects returns an owner's records, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]project.Record, error) {
	query := `
		SELECT id, owner_id, name, type, files, created_at, updated_at
		FROM projects WHERE owner_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var recs []project.Record
	for rows.Next() {
		rec, err := s.scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *Store) scanRecord(row pgx.Row) (project.Record, error) {
	var rec project.Record
	var filesJSON []byte

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.Name, &rec.Type,
		&filesJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return project.Record{}, workspace.ErrNotFound
	}
	if err != nil {
		return project.Record{}, fmt.Errorf("scan project: %w", err)
	}

	if err := json.Unmarshal(filesJSON, &rec.Files); err != nil {
		return project.Record{}, fmt.Errorf("unmarshal files: %w", err)
	}
	return rec, nil
}

func (s *Store) scanRecordRow(rows pgx.Rows) (project.Record, error) {
	var rec project.Record
	var filesJSON []byte

	err := rows.Scan(
		&rec.ID, &rec.OwnerID, &rec.Name, &rec.Type,
		&filesJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return project.Record{}, fmt.Errorf("scan project row: %w", err)
	}

	if err := json.Unmarshal(filesJSON, &rec.Files); err != nil {
		return project.Record{}, fmt.Errorf("unmarshal files: %w", err)
	}
	return rec, nil
}
