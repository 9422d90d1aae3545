package models

import "time"

// SceneType различает главы (контейнеры) и сцены (листья дерева).
type SceneType string

const (
	SceneTypeScene   SceneType = "scene"
	SceneTypeChapter SceneType = "chapter"
)

// RootSceneID идентификатор виртуального корня дерева сцен. Никогда не сохраняется.
const RootSceneID = 0

// Scene представляет сцену или главу рукописи.
type Scene struct {
	Name     string    `json:"name" toml:"name"`           // Name отображаемое название
	Type     SceneType `json:"type" toml:"type"`           // Type сцена или глава
	Content  string    `json:"content" toml:"content"`     // Content markdown текст сцены
	ID       int       `json:"id" toml:"id"`               // ID уникальный в пределах проекта
	Order    int       `json:"order" toml:"order"`         // Order индекс среди соседей (с нуля, без пропусков)
	ParentID int       `json:"parent_id" toml:"parent_id"` // ParentID родительская глава, 0 - корень
}

func (s *Scene) EntityID() int          { return s.ID }
func (s *Scene) EntityType() EntityType { return EntityTypeScene }

// IsChapter reports whether the item may contain children.
func (s *Scene) IsChapter() bool {
	return s.Type == SceneTypeChapter
}

// Note представляет заметку проекта.
type Note struct {
	Created time.Time `json:"created" toml:"created"`
	Content string    `json:"content" toml:"content"`
	ID      int       `json:"id" toml:"id"`
}

func (n *Note) EntityID() int          { return n.ID }
func (n *Note) EntityType() EntityType { return EntityTypeNote }

// TimelineEvent событие на временной шкале проекта.
type TimelineEvent struct {
	Date    string `json:"date" toml:"date"` // Date произвольная строка, формат задает автор
	Content string `json:"content" toml:"content"`
	ID      int    `json:"id" toml:"id"`
	Order   int    `json:"order" toml:"order"`
}

func (e *TimelineEvent) EntityID() int          { return e.ID }
func (e *TimelineEvent) EntityType() EntityType { return EntityTypeTimelineEvent }

// EncyclopediaEntry запись энциклопедии мира (персонаж, место, предмет...).
type EncyclopediaEntry struct {
	Name      string   `json:"name" toml:"name"`
	EntryType string   `json:"entry_type" toml:"entry_type"`
	Text      string   `json:"text" toml:"text"`
	ImageExt  string   `json:"image_ext,omitempty" toml:"image_ext,omitempty"`
	Tags      []string `json:"tags" toml:"tags"`
	ID        int      `json:"id" toml:"id"`
}

func (e *EncyclopediaEntry) EntityID() int          { return e.ID }
func (e *EncyclopediaEntry) EntityType() EntityType { return EntityTypeEncyclopediaEntry }

// SceneDraft сохраненный черновик сцены.
type SceneDraft struct {
	Created time.Time `json:"created" toml:"created"`
	Name    string    `json:"name" toml:"name"`
	Content string    `json:"content" toml:"content"`
	ID      int       `json:"id" toml:"id"`
	SceneID int       `json:"scene_id" toml:"scene_id"`
}

func (d *SceneDraft) EntityID() int          { return d.ID }
func (d *SceneDraft) EntityType() EntityType { return EntityTypeSceneDraft }
