package synchronizer

import (
	"errors"
	"fmt"

	"github.com/iudanet/manuscript/internal/models"
)

var (
	// ErrEntityNotFound indicates that the entity does not exist on the server
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityDecode indicates that the stored entity file cannot be decoded
	ErrEntityDecode = errors.New("failed to decode stored entity")

	// ErrEntityConflict indicates that the stored entity changed since the
	// client last synced it. Match with errors.Is, extract with errors.As.
	ErrEntityConflict = errors.New("entity conflict")

	// ErrIDCollision indicates that the id is already used by another entity type
	ErrIDCollision = errors.New("entity id used by another type")

	// ErrInvalidEntity indicates an entity that cannot be stored (bad id)
	ErrInvalidEntity = errors.New("invalid entity")
)

// EntityConflictError несет серверную версию сущности, с которой
// конфликтует запись клиента.
type EntityConflictError[T models.Entity] struct {
	Conflict models.EntityConflict[T]
}

func (e *EntityConflictError[T]) Error() string {
	if e.Conflict.Deleted() {
		return fmt.Sprintf("entity conflict: %s %d changed on server, cannot delete", e.Conflict.Type(), e.Conflict.EntityID())
	}
	return fmt.Sprintf("entity conflict: %s %d changed on server", e.Conflict.Type(), e.Conflict.EntityID())
}

// Is matches ErrEntityConflict.
func (e *EntityConflictError[T]) Is(target error) bool {
	return target == ErrEntityConflict
}

// EntityConflict returns the type-erased conflict.
func (e *EntityConflictError[T]) EntityConflict() models.Conflict {
	return e.Conflict
}

// ConflictCarrier is implemented by every EntityConflictError instantiation.
type ConflictCarrier interface {
	error
	EntityConflict() models.Conflict
}

// AsConflict extracts the conflict from err regardless of the entity type.
func AsConflict(err error) (models.Conflict, bool) {
	var c ConflictCarrier
	if errors.As(err, &c) {
		return c.EntityConflict(), true
	}
	return nil, false
}
