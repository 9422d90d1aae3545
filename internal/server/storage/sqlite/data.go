package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/internal/server/storage"
)

// GetSyncData retrieves bookkeeping of a project
// Returns empty data for a never-synced project
func (s *Storage) GetSyncData(ctx context.Context, projectID string) (*models.ProjectSyncData, error) {
	query := `
		SELECT last_sync, last_id, deleted_ids
		FROM project_sync_data
		WHERE project_id = ?
	`

	var lastSync int64
	var lastID int
	var deletedJSON string

	err := s.db.QueryRowContext(ctx, query, projectID).Scan(&lastSync, &lastID, &deletedJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewProjectSyncData(), nil
		}
		return nil, fmt.Errorf("failed to get sync data: %w", err)
	}

	var deleted []int
	if err := json.Unmarshal([]byte(deletedJSON), &deleted); err != nil {
		return nil, fmt.Errorf("%w: deleted ids: %v", storage.ErrInvalidSyncData, err)
	}

	data := models.NewProjectSyncData()
	data.LastSync = unixMilliToTime(lastSync)
	data.LastID = lastID
	for _, id := range deleted {
		data.DeletedIDs[id] = struct{}{}
	}

	return data, nil
}

// SaveSyncData creates or replaces bookkeeping of a project
func (s *Storage) SaveSyncData(ctx context.Context, projectID string, data *models.ProjectSyncData) error {
	deleted := data.SortedDeletedIDs()
	deletedJSON, err := json.Marshal(deleted)
	if err != nil {
		return fmt.Errorf("failed to marshal deleted ids: %w", err)
	}

	query := `
		INSERT INTO project_sync_data (project_id, last_sync, last_id, deleted_ids, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			last_sync = excluded.last_sync,
			last_id = excluded.last_id,
			deleted_ids = excluded.deleted_ids,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		projectID,
		timeToUnixMilli(data.LastSync),
		data.LastID,
		string(deletedJSON),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save sync data: %w", err)
	}

	return nil
}

// SaveDeletedIDs replaces the deleted id set, keeping last_sync and last_id
func (s *Storage) SaveDeletedIDs(ctx context.Context, projectID string, deleted []int) error {
	if deleted == nil {
		deleted = []int{}
	}
	deletedJSON, err := json.Marshal(deleted)
	if err != nil {
		return fmt.Errorf("failed to marshal deleted ids: %w", err)
	}

	query := `
		INSERT INTO project_sync_data (project_id, deleted_ids, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			deleted_ids = excluded.deleted_ids,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query, projectID, string(deletedJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save deleted ids: %w", err)
	}

	return nil
}

// Helper functions for time conversion
func timeToUnixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func unixMilliToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func unixToTime(timestamp int64) time.Time {
	return time.Unix(timestamp, 0).UTC()
}
