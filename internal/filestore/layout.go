package filestore

import (
	"fmt"
	"path/filepath"

	"github.com/iudanet/manuscript/internal/validation"
)

// EntitiesDir имя каталога сущностей внутри каталога проекта
const EntitiesDir = "entities"

// Layout раскладывает проекты по каталогам под общим корнем.
// Сервер: {root}/{user}/{project}/entities, клиент: {root}/{project}/entities.
type Layout struct {
	Codec Codec
	Root  string
}

// ProjectDir returns the store of the project for a user. An empty userID
// is the single-user client layout.
func (l Layout) ProjectDir(userID, project string) (*Dir, error) {
	if err := validation.ValidateProjectName(project); err != nil {
		return nil, err
	}

	if userID == "" {
		return New(filepath.Join(l.Root, project, EntitiesDir), l.Codec), nil
	}

	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return New(filepath.Join(l.Root, userID, project, EntitiesDir), l.Codec), nil
}

// ProjectPath returns the project directory without the entities subdirectory.
func (l Layout) ProjectPath(userID, project string) (string, error) {
	d, err := l.ProjectDir(userID, project)
	if err != nil {
		return "", fmt.Errorf("invalid project location: %w", err)
	}
	return filepath.Dir(d.Path()), nil
}
