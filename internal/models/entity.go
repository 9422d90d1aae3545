package models

import "fmt"

// EntityType тип синхронизируемой сущности.
// Строковое значение совпадает с суффиксом имени файла ({id}-{stub}.json).
type EntityType string

const (
	EntityTypeScene             EntityType = "scene"
	EntityTypeNote              EntityType = "note"
	EntityTypeTimelineEvent     EntityType = "timeline_event"
	EntityTypeEncyclopediaEntry EntityType = "encyclopedia_entry"
	EntityTypeSceneDraft        EntityType = "scene_draft"
)

// SyncOrder is the fixed order in which entity types are synchronized.
var SyncOrder = []EntityType{
	EntityTypeScene,
	EntityTypeNote,
	EntityTypeTimelineEvent,
	EntityTypeEncyclopediaEntry,
	EntityTypeSceneDraft,
}

// Stub returns the file name stub of the type.
func (t EntityType) Stub() string {
	return string(t)
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeScene, EntityTypeNote, EntityTypeTimelineEvent,
		EntityTypeEncyclopediaEntry, EntityTypeSceneDraft:
		return true
	default:
		return false
	}
}

// ParseEntityType converts a type stub into EntityType.
func ParseEntityType(stub string) (EntityType, error) {
	t := EntityType(stub)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", stub)
	}
	return t, nil
}

// Entity общий интерфейс для всех синхронизируемых сущностей проекта.
// ID уникален в пределах проекта для всех типов одновременно.
type Entity interface {
	EntityID() int
	EntityType() EntityType
}

// Kind описывает тип сущности для generic кода: дискриминант и фабрику
// пустого значения для декодирования.
type Kind[T Entity] struct {
	New  func() T
	Type EntityType
}

var (
	SceneKind = Kind[*Scene]{
		Type: EntityTypeScene,
		New:  func() *Scene { return &Scene{} },
	}
	NoteKind = Kind[*Note]{
		Type: EntityTypeNote,
		New:  func() *Note { return &Note{} },
	}
	TimelineEventKind = Kind[*TimelineEvent]{
		Type: EntityTypeTimelineEvent,
		New:  func() *TimelineEvent { return &TimelineEvent{} },
	}
	EncyclopediaEntryKind = Kind[*EncyclopediaEntry]{
		Type: EntityTypeEncyclopediaEntry,
		New:  func() *EncyclopediaEntry { return &EncyclopediaEntry{} },
	}
	SceneDraftKind = Kind[*SceneDraft]{
		Type: EntityTypeSceneDraft,
		New:  func() *SceneDraft { return &SceneDraft{} },
	}
)

// NewEntity returns an empty entity value of the given type, ready for decoding.
func NewEntity(t EntityType) (Entity, error) {
	switch t {
	case EntityTypeScene:
		return SceneKind.New(), nil
	case EntityTypeNote:
		return NoteKind.New(), nil
	case EntityTypeTimelineEvent:
		return TimelineEventKind.New(), nil
	case EntityTypeEncyclopediaEntry:
		return EncyclopediaEntryKind.New(), nil
	case EntityTypeSceneDraft:
		return SceneDraftKind.New(), nil
	default:
		return nil, fmt.Errorf("unknown entity type %q", t)
	}
}

// WithID returns a copy of the entity with a different ID.
// Used when an entity created offline has to be re-identified before sync.
func WithID(e Entity, id int) (Entity, error) {
	switch v := e.(type) {
	case *Scene:
		c := *v
		c.ID = id
		return &c, nil
	case *Note:
		c := *v
		c.ID = id
		return &c, nil
	case *TimelineEvent:
		c := *v
		c.ID = id
		return &c, nil
	case *EncyclopediaEntry:
		c := *v
		c.ID = id
		c.Tags = append([]string(nil), v.Tags...)
		return &c, nil
	case *SceneDraft:
		c := *v
		c.ID = id
		return &c, nil
	default:
		return nil, fmt.Errorf("unsupported entity %T", e)
	}
}
