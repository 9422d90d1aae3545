// Package sync синхронизирует локальный проект с сервером: отправляет
// локальные изменения, скачивает серверные и собирает конфликты для
// разрешения пользователем.
package sync

import (
	"context"
	"time"

	clientapi "github.com/iudanet/manuscript/internal/client/api"
	"github.com/iudanet/manuscript/internal/client/project"
	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/pkg/api"
)

//go:generate moq -out server_mock.go . ServerAPI

// ServerAPI операции сервера, нужные синхронизации
type ServerAPI interface {
	BeginSync(ctx context.Context, project string, clientState models.ClientEntityState) (*api.BeginSyncResponse, error)
	LoadEntity(ctx context.Context, project, syncID string, t models.EntityType, id int) (models.Entity, error)
	SaveEntity(ctx context.Context, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error)
	DeleteEntity(ctx context.Context, project, syncID string, id int, originalHash *string) (bool, error)
	EndSync(ctx context.Context, project, syncID string, lastSync time.Time, lastID int) error
	CancelSync(ctx context.Context, project, syncID string) error
}

// LocalProject локальная копия проекта
type LocalProject interface {
	Name() string
	Entities(t models.EntityType) ([]models.Entity, error)
	Find(id int) (models.Entity, error)
	Save(e models.Entity) error
	Remove(t models.EntityType, id int) error
	ReIdentify(oldID int) (int, error)
	Reserve(lastID int) error
	LastID() (int, error)
	NormalizeScenes() ([]*models.Scene, error)
}

var (
	_ ServerAPI    = (*clientapi.Client)(nil)
	_ LocalProject = (*project.Project)(nil)
)
