package storage

import (
	"context"

	"github.com/iudanet/manuscript/internal/models"
)

// ProjectStorage defines interface for the per-user project registry
type ProjectStorage interface {
	// EnsureProject returns the registered project or registers it with a new id
	EnsureProject(ctx context.Context, userID, name string) (*models.ProjectDefinition, error)

	// GetProject retrieves a project by name
	// Returns ErrProjectNotFound if project is not registered
	GetProject(ctx context.Context, userID, name string) (*models.ProjectDefinition, error)

	// ListProjects retrieves all projects of a user ordered by name
	// Returns empty slice if no projects found
	ListProjects(ctx context.Context, userID string) ([]*models.ProjectDefinition, error)
}
