package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/internal/server/storage"
)

// EnsureProject returns the registered project or registers it with a new id
func (s *Storage) EnsureProject(ctx context.Context, userID, name string) (*models.ProjectDefinition, error) {
	query := `
		INSERT INTO projects (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(),
		userID,
		name,
		time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register project: %w", err)
	}

	return s.GetProject(ctx, userID, name)
}

// GetProject retrieves a project by name
// Returns ErrProjectNotFound if project is not registered
func (s *Storage) GetProject(ctx context.Context, userID, name string) (*models.ProjectDefinition, error) {
	query := `
		SELECT id, name, created_at
		FROM projects
		WHERE user_id = ? AND name = ?
	`

	project := &models.ProjectDefinition{}
	var createdAt int64

	err := s.db.QueryRowContext(ctx, query, userID, name).Scan(
		&project.ID,
		&project.Name,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	project.CreatedAt = unixToTime(createdAt)
	return project, nil
}

// ListProjects retrieves all projects of a user ordered by name
func (s *Storage) ListProjects(ctx context.Context, userID string) (projects []*models.ProjectDefinition, err error) {
	query := `
		SELECT id, name, created_at
		FROM projects
		WHERE user_id = ?
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	projects = make([]*models.ProjectDefinition, 0)
	for rows.Next() {
		project := &models.ProjectDefinition{}
		var createdAt int64
		if err := rows.Scan(&project.ID, &project.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		project.CreatedAt = unixToTime(createdAt)
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return projects, nil
}
