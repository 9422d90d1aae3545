// Package synchronizer реализует серверную синхронизацию сущностей одного
// типа. Один generic Synchronizer на тип, различия между типами задаются
// значением models.Kind.
package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/manuscript/internal/crypto"
	"github.com/iudanet/manuscript/internal/filestore"
	"github.com/iudanet/manuscript/internal/models"
)

// Store файловое хранилище сущностей одного проекта.
type Store interface {
	Read(t models.EntityType, id int, v any) error
	Write(e models.Entity) error
	Remove(t models.EntityType, id int) error
	Find(id int) ([]filestore.Ref, error)
	ListType(t models.EntityType) ([]filestore.Ref, error)
}

// StoreResolver возвращает хранилище проекта пользователя.
type StoreResolver interface {
	ProjectStore(userID, project string) (Store, error)
}

// Synchronizer загрузка, сохранение с проверкой конфликта и удаление
// сущностей типа T.
type Synchronizer[T models.Entity] struct {
	stores StoreResolver
	locks  *ProjectLocks
	logger *slog.Logger
	kind   models.Kind[T]
}

// New creates a synchronizer for the entity kind. locks must be shared by
// the synchronizers of all types serving the same stores.
func New[T models.Entity](kind models.Kind[T], stores StoreResolver, locks *ProjectLocks, logger *slog.Logger) *Synchronizer[T] {
	return &Synchronizer[T]{
		kind:   kind,
		stores: stores,
		locks:  locks,
		logger: logger.With("entity_type", string(kind.Type)),
	}
}

// Type returns the entity type handled by the synchronizer.
func (s *Synchronizer[T]) Type() models.EntityType {
	return s.kind.Type
}

func (s *Synchronizer[T]) read(store Store, id int) (T, error) {
	v := s.kind.New()
	if err := store.Read(s.kind.Type, id, v); err != nil {
		var zero T
		switch {
		case errors.Is(err, filestore.ErrNotFound):
			return zero, fmt.Errorf("%w: %s %d", ErrEntityNotFound, s.kind.Type, id)
		case errors.Is(err, filestore.ErrDecode):
			return zero, fmt.Errorf("%w: %v", ErrEntityDecode, err)
		default:
			return zero, err
		}
	}
	return v, nil
}

// LoadEntity reads a single entity. Returns ErrEntityNotFound, ErrEntityDecode
// or an I/O error.
func (s *Synchronizer[T]) LoadEntity(ctx context.Context, userID, project string, id int) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	store, err := s.stores.ProjectStore(userID, project)
	if err != nil {
		return zero, err
	}
	return s.read(store, id)
}

// GetUpdateSequence returns the entities of this type the client has to pull:
// those whose hash differs from clientState and those the client lacks.
// Entities that cannot be read are logged and skipped for this round.
func (s *Synchronizer[T]) GetUpdateSequence(ctx context.Context, userID, project string, clientState models.ClientEntityState) ([]T, error) {
	store, err := s.stores.ProjectStore(userID, project)
	if err != nil {
		return nil, err
	}

	refs, err := store.ListType(s.kind.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	out := make([]T, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e, err := s.read(store, ref.ID)
		if err != nil {
			s.logger.Warn("skipping unreadable entity", "user_id", userID, "project", project, "entity_id", ref.ID, "error", err)
			continue
		}

		hash, err := crypto.HashEntity(e)
		if err != nil {
			s.logger.Warn("skipping unhashable entity", "user_id", userID, "project", project, "entity_id", ref.ID, "error", err)
			continue
		}

		if known, ok := clientState[ref.ID]; ok && known == hash {
			continue
		}
		out = append(out, e)
	}

	return out, nil
}

// SaveEntity записывает сущность клиента. Единственная точка обнаружения
// конфликтов: если на диске уже есть сущность с этим ID, а originalHash
// задан и не совпадает с ее хешем, возвращается *EntityConflictError с
// серверной версией и ничего не пишется. force пишет без проверки.
func (s *Synchronizer[T]) SaveEntity(ctx context.Context, userID, project string, entity T, originalHash *string, force bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if entity.EntityID() <= 0 {
		return false, fmt.Errorf("%w: id %d", ErrInvalidEntity, entity.EntityID())
	}

	store, err := s.stores.ProjectStore(userID, project)
	if err != nil {
		return false, err
	}

	defer s.locks.Lock(userID, project)()

	refs, err := store.Find(entity.EntityID())
	if err != nil {
		return false, fmt.Errorf("failed to check entity id: %w", err)
	}
	for _, ref := range refs {
		if ref.Type != s.kind.Type {
			return false, fmt.Errorf("%w: %d is a %s", ErrIDCollision, ref.ID, ref.Type)
		}
	}

	if !force && originalHash != nil && len(refs) > 0 {
		existing, err := s.read(store, entity.EntityID())
		if err != nil {
			return false, err
		}
		currentHash, err := crypto.HashEntity(existing)
		if err != nil {
			return false, fmt.Errorf("failed to hash stored entity: %w", err)
		}
		if currentHash != *originalHash {
			return false, &EntityConflictError[T]{Conflict: models.NewEntityConflict(existing, entity)}
		}
	}

	if err := store.Write(entity); err != nil {
		return false, fmt.Errorf("failed to write entity: %w", err)
	}

	s.logger.Debug("entity saved", "user_id", userID, "project", project, "entity_id", entity.EntityID(), "force", force)
	return true, nil
}

// DeleteEntity removes the entity file. Returns false if it did not exist.
// Удаление проверяется так же, как запись: если originalHash задан, а
// сущность на диске с тех пор изменилась, возвращается *EntityConflictError
// с серверной версией и файл не удаляется. nil удаляет без проверки.
func (s *Synchronizer[T]) DeleteEntity(ctx context.Context, userID, project string, id int, originalHash *string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	store, err := s.stores.ProjectStore(userID, project)
	if err != nil {
		return false, err
	}

	defer s.locks.Lock(userID, project)()

	if originalHash != nil {
		existing, err := s.read(store, id)
		if err != nil {
			if errors.Is(err, ErrEntityNotFound) {
				return false, nil
			}
			return false, err
		}
		currentHash, err := crypto.HashEntity(existing)
		if err != nil {
			return false, fmt.Errorf("failed to hash stored entity: %w", err)
		}
		if currentHash != *originalHash {
			return false, &EntityConflictError[T]{Conflict: models.NewDeleteConflict(existing)}
		}
	}

	if err := store.Remove(s.kind.Type, id); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete entity: %w", err)
	}

	s.logger.Debug("entity deleted", "user_id", userID, "project", project, "entity_id", id, "checked", originalHash != nil)
	return true, nil
}

// LayoutStores resolves project stores from a filestore layout.
type LayoutStores struct {
	Layout filestore.Layout
}

// ProjectStore returns the entity directory of the user's project.
func (l LayoutStores) ProjectStore(userID, project string) (Store, error) {
	d, err := l.Layout.ProjectDir(userID, project)
	if err != nil {
		return nil, err
	}
	return d, nil
}
