package workspace

import (
	"context"
	"errors"

	"github.com/craftpad/craftpad/internal/project"
)

var ErrNotFound = errors.New("project not found")

// Store is the persistence collaborator for project records. Implementations
// live under internal/store; they return ErrNotFound when an identifier does
// not resolve and own their own timeout/retry policy.
type Store interface {
	// FetchProject returns the record for an identifier.
	FetchProject(ctx context.Context, id string) (project.Record, error)

	// CreateProject persists a new record and returns the identifier it
	// assigned. The record's ID field is empty on the way in.
	CreateProject(ctx context.Context, rec project.Record) (string, error)

	// UpdateProject overwrites the stored record for an identifier.
	UpdateProject(ctx context.Context, id string, rec project.Record) error

	// DeleteProject removes the record for an identifier.
	DeleteProject(ctx context.Context, id string) error

	// ListProjects returns all records owned by a user, most recently
	// updated first.
	ListProjects(ctx context.Context, ownerID string) ([]project.Record, error)
}
