package models

// Conflict is the type-erased view of an EntityConflict, used where the
// entity type is only known at runtime (callbacks, transport).
type Conflict interface {
	Type() EntityType
	Server() Entity
	// Client returns nil when the client side of the conflict is a deletion.
	Client() Entity
	EntityID() int
	Deleted() bool
}

// EntityConflict пара версий одной сущности: серверная и клиентская.
// Создается только при несовпадении хешей. ClientDeleted - клиент удалил
// сущность, а на сервере ее успели изменить.
type EntityConflict[T Entity] struct {
	ServerEntity  T
	ClientEntity  T
	ClientDeleted bool
}

// NewEntityConflict creates a conflict snapshot.
func NewEntityConflict[T Entity](server, client T) EntityConflict[T] {
	return EntityConflict[T]{ServerEntity: server, ClientEntity: client}
}

// NewDeleteConflict creates a conflict between a server edit and a client deletion.
func NewDeleteConflict[T Entity](server T) EntityConflict[T] {
	return EntityConflict[T]{ServerEntity: server, ClientDeleted: true}
}

func (c EntityConflict[T]) Type() EntityType { return c.ServerEntity.EntityType() }
func (c EntityConflict[T]) Server() Entity   { return c.ServerEntity }
func (c EntityConflict[T]) Deleted() bool    { return c.ClientDeleted }

func (c EntityConflict[T]) Client() Entity {
	if c.ClientDeleted {
		return nil
	}
	return c.ClientEntity
}

// EntityID returns the id both versions share.
func (c EntityConflict[T]) EntityID() int { return c.ServerEntity.EntityID() }
