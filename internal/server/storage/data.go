package storage

import (
	"context"

	"github.com/iudanet/manuscript/internal/models"
)

// SyncDataStorage defines interface for per-project sync bookkeeping persistence
type SyncDataStorage interface {
	// GetSyncData retrieves bookkeeping of a project
	// Returns empty data (LastID 0, no deleted ids) for a never-synced project
	GetSyncData(ctx context.Context, projectID string) (*models.ProjectSyncData, error)

	// SaveSyncData creates or replaces bookkeeping of a project
	SaveSyncData(ctx context.Context, projectID string, data *models.ProjectSyncData) error

	// SaveDeletedIDs replaces only the deleted id set of a project
	// LastSync and LastID are left as they are
	SaveDeletedIDs(ctx context.Context, projectID string, deleted []int) error
}
