package synchronizer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iudanet/manuscript/internal/models"
)

// Handler is the type-erased view of a Synchronizer, used where the entity
// type is only known at runtime (repository dispatch, HTTP transport).
type Handler interface {
	Type() models.EntityType
	Load(ctx context.Context, userID, project string, id int) (models.Entity, error)
	UpdateSequence(ctx context.Context, userID, project string, clientState models.ClientEntityState) ([]int, error)
	Save(ctx context.Context, userID, project string, e models.Entity, originalHash *string, force bool) (bool, error)
	Delete(ctx context.Context, userID, project string, id int, originalHash *string) (bool, error)
}

type handler[T models.Entity] struct {
	s *Synchronizer[T]
}

// Erase wraps a typed synchronizer into a Handler.
func Erase[T models.Entity](s *Synchronizer[T]) Handler {
	return handler[T]{s: s}
}

func (h handler[T]) Type() models.EntityType {
	return h.s.Type()
}

func (h handler[T]) Load(ctx context.Context, userID, project string, id int) (models.Entity, error) {
	e, err := h.s.LoadEntity(ctx, userID, project, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (h handler[T]) UpdateSequence(ctx context.Context, userID, project string, clientState models.ClientEntityState) ([]int, error) {
	entities, err := h.s.GetUpdateSequence(ctx, userID, project, clientState)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.EntityID())
	}
	return ids, nil
}

func (h handler[T]) Save(ctx context.Context, userID, project string, e models.Entity, originalHash *string, force bool) (bool, error) {
	typed, ok := e.(T)
	if !ok {
		return false, fmt.Errorf("%w: expected %s, got %T", ErrInvalidEntity, h.s.Type(), e)
	}
	return h.s.SaveEntity(ctx, userID, project, typed, originalHash, force)
}

func (h handler[T]) Delete(ctx context.Context, userID, project string, id int, originalHash *string) (bool, error) {
	return h.s.DeleteEntity(ctx, userID, project, id, originalHash)
}

// NewHandlers creates one handler per entity type, keyed by type.
func NewHandlers(stores StoreResolver, logger *slog.Logger) map[models.EntityType]Handler {
	locks := NewProjectLocks()
	return map[models.EntityType]Handler{
		models.EntityTypeScene:             Erase(New(models.SceneKind, stores, locks, logger)),
		models.EntityTypeNote:              Erase(New(models.NoteKind, stores, locks, logger)),
		models.EntityTypeTimelineEvent:     Erase(New(models.TimelineEventKind, stores, locks, logger)),
		models.EntityTypeEncyclopediaEntry: Erase(New(models.EncyclopediaEntryKind, stores, locks, logger)),
		models.EntityTypeSceneDraft:        Erase(New(models.SceneDraftKind, stores, locks, logger)),
	}
}
