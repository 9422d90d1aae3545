// Package project работает с локальной копией проекта: файлы сущностей в
// TOML, выдача ID и дерево сцен.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/manuscript/internal/crypto"
	"github.com/iudanet/manuscript/internal/filestore"
	"github.com/iudanet/manuscript/internal/idalloc"
	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/internal/scenetree"
)

// ErrNotFound no entity with the requested id
var ErrNotFound = filestore.ErrNotFound

// Project локальный проект пользователя.
type Project struct {
	dir    *filestore.Dir
	ids    *idalloc.Allocator
	logger *slog.Logger
	name   string
	path   string
	strict bool
	mu     sync.Mutex
}

// Option configures a Project.
type Option func(*Project)

// WithStrictTree builds scene trees in strict mode: a broken order invariant panics.
func WithStrictTree() Option {
	return func(p *Project) {
		p.strict = true
	}
}

// NewLayout returns the client layout: {root}/{project}/entities/*.toml.
func NewLayout(root string) filestore.Layout {
	return filestore.Layout{Root: root, Codec: filestore.TOMLCodec{}}
}

// Open opens the project under root. The directory is created on first write.
func Open(root, name string, logger *slog.Logger, opts ...Option) (*Project, error) {
	layout := NewLayout(root)
	dir, err := layout.ProjectDir("", name)
	if err != nil {
		return nil, fmt.Errorf("invalid project %q: %w", name, err)
	}
	path, err := layout.ProjectPath("", name)
	if err != nil {
		return nil, err
	}

	p := &Project{
		name:   name,
		path:   path,
		dir:    dir,
		ids:    idalloc.New(dir),
		logger: logger.With("project", name),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Path returns the project directory.
func (p *Project) Path() string { return p.path }

// Load reads one entity of a known type.
func (p *Project) Load(t models.EntityType, id int) (models.Entity, error) {
	e, err := models.NewEntity(t)
	if err != nil {
		return nil, err
	}
	if err := p.dir.Read(t, id, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Find reads the entity with the given id whatever its type.
func (p *Project) Find(id int) (models.Entity, error) {
	refs, err := p.dir.Find(id)
	if err != nil {
		return nil, err
	}
	switch len(refs) {
	case 0:
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	case 1:
		return p.Load(refs[0].Type, id)
	default:
		return nil, fmt.Errorf("%w: id %d used by %d entities", idalloc.ErrIDSpaceCorrupted, id, len(refs))
	}
}

// Entities reads every entity of a type, sorted by id. Unreadable files are
// logged and skipped.
func (p *Project) Entities(t models.EntityType) ([]models.Entity, error) {
	refs, err := p.dir.ListType(t)
	if err != nil {
		return nil, err
	}

	out := make([]models.Entity, 0, len(refs))
	for _, ref := range refs {
		e, err := p.Load(ref.Type, ref.ID)
		if err != nil {
			if errors.Is(err, filestore.ErrDecode) {
				p.logger.Warn("skipping unreadable entity", "entity_id", ref.ID, "type", ref.Type, "error", err)
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Hashes returns the content hash of every local entity.
func (p *Project) Hashes() (models.ClientEntityState, error) {
	state := make(models.ClientEntityState)
	for _, t := range models.SyncOrder {
		entities, err := p.Entities(t)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			h, err := crypto.HashEntity(e)
			if err != nil {
				return nil, err
			}
			state[e.EntityID()] = h
		}
	}
	return state, nil
}

// Save writes an entity. The id must already be allocated.
func (p *Project) Save(e models.Entity) error {
	if e.EntityID() <= 0 {
		return fmt.Errorf("invalid entity id %d", e.EntityID())
	}
	return p.dir.Write(e)
}

// Remove deletes one entity file.
func (p *Project) Remove(t models.EntityType, id int) error {
	return p.dir.Remove(t, id)
}

// ClaimNextID hands out a new project-wide id.
func (p *Project) ClaimNextID() (int, error) {
	return p.ids.ClaimNextID()
}

// Reserve makes sure new ids are greater than lastID.
func (p *Project) Reserve(lastID int) error {
	return p.ids.Reserve(lastID)
}

// LastID returns the highest id known locally.
func (p *Project) LastID() (int, error) {
	return p.ids.LastID()
}

func (p *Project) scenes() ([]*models.Scene, error) {
	entities, err := p.Entities(models.EntityTypeScene)
	if err != nil {
		return nil, err
	}
	scenes := make([]*models.Scene, 0, len(entities))
	for _, e := range entities {
		scenes = append(scenes, e.(*models.Scene))
	}
	return scenes, nil
}

// SceneTree builds the scene tree from the scene files.
func (p *Project) SceneTree() (*scenetree.Tree, error) {
	scenes, err := p.scenes()
	if err != nil {
		return nil, err
	}
	opts := []scenetree.Option{scenetree.WithLogger(p.logger)}
	if p.strict {
		opts = append(opts, scenetree.WithStrict())
	}
	return scenetree.Build(scenes, opts...)
}

// persist пишет измененные деревом сцены
func (p *Project) persist(scenes []*models.Scene) error {
	for _, s := range scenes {
		if err := p.dir.Write(s); err != nil {
			return err
		}
	}
	return nil
}

// AddScene creates a scene or chapter as the last child of parentID.
func (p *Project) AddScene(parentID int, name string, sceneType models.SceneType, content string) (*models.Scene, error) {
	if sceneType != models.SceneTypeScene && sceneType != models.SceneTypeChapter {
		return nil, fmt.Errorf("unknown scene type %q", sceneType)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.SceneTree()
	if err != nil {
		return nil, err
	}
	id, err := p.ids.ClaimNextID()
	if err != nil {
		return nil, err
	}

	scene := &models.Scene{ID: id, Name: name, Type: sceneType, Content: content}
	if err := tree.Add(parentID, scene); err != nil {
		return nil, err
	}
	if err := p.persist(tree.TakeDirty()); err != nil {
		return nil, err
	}
	return scene, nil
}

// MoveScene moves a scene inside the tree and writes every scene whose
// position changed.
func (p *Project) MoveScene(id int, dest scenetree.InsertPosition) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.SceneTree()
	if err != nil {
		return err
	}
	if err := tree.MoveScene(id, dest); err != nil {
		return err
	}
	// Сироты, подвешенные к корню при построении, тоже сохраняются
	return p.persist(tree.TakeDirty())
}

// Placement положение перемещаемой сцены относительно целевой.
type Placement int

const (
	PlaceBefore Placement = iota
	PlaceAfter
	PlaceInto // последним ребенком целевой главы
)

// MoveSceneTo moves a scene relative to another scene, or to the end of a
// chapter with PlaceInto. Target 0 with PlaceInto is the root.
func (p *Project) MoveSceneTo(id, targetID int, place Placement) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.SceneTree()
	if err != nil {
		return err
	}

	var dest scenetree.InsertPosition
	switch place {
	case PlaceInto:
		target := tree.Find(targetID)
		if target == nil {
			return fmt.Errorf("%w: id %d", scenetree.ErrNodeNotFound, targetID)
		}
		c, err := tree.Coordinates(targetID)
		if err != nil {
			return err
		}
		dest = scenetree.InsertPosition{
			Coords: scenetree.Coordinates{
				ParentIndex:     c.GlobalIndex,
				ChildLocalIndex: len(target.Children()),
			},
			Before: true,
		}
	case PlaceBefore, PlaceAfter:
		c, err := tree.Coordinates(targetID)
		if err != nil {
			return err
		}
		if targetID == models.RootSceneID {
			return fmt.Errorf("%w: root has no siblings", scenetree.ErrInvalidPosition)
		}
		dest = scenetree.InsertPosition{Coords: c, Before: place == PlaceBefore}
	default:
		return fmt.Errorf("unknown placement %d", place)
	}

	if err := tree.MoveScene(id, dest); err != nil {
		return err
	}
	return p.persist(tree.TakeDirty())
}

// NormalizeScenes renumbers sibling orders after scenes from different
// devices were merged. Returns the scenes that were rewritten.
func (p *Project) NormalizeScenes() ([]*models.Scene, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.SceneTree()
	if err != nil {
		return nil, err
	}
	changed := tree.Normalize()
	if err := p.persist(changed); err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		p.logger.Debug("scene order normalized", "changed", len(changed))
	}
	return changed, nil
}

// AddNote creates a note.
func (p *Project) AddNote(content string, created time.Time) (*models.Note, error) {
	id, err := p.ids.ClaimNextID()
	if err != nil {
		return nil, err
	}
	note := &models.Note{ID: id, Content: content, Created: created.UTC()}
	if err := p.dir.Write(note); err != nil {
		return nil, err
	}
	return note, nil
}

// Delete removes an entity. A scene is removed with its subtree and the
// drafts of every removed scene. Returns every removed id.
func (p *Project) Delete(id int) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.Find(id)
	if err != nil {
		return nil, err
	}
	if e.EntityType() != models.EntityTypeScene {
		if err := p.dir.Remove(e.EntityType(), id); err != nil {
			return nil, err
		}
		return []int{id}, nil
	}

	tree, err := p.SceneTree()
	if err != nil {
		return nil, err
	}
	sceneIDs, err := tree.Remove(id)
	if err != nil {
		return nil, err
	}

	removedScenes := make(map[int]struct{}, len(sceneIDs))
	removed := make([]int, 0, len(sceneIDs))
	for _, sid := range sceneIDs {
		if err := p.dir.Remove(models.EntityTypeScene, sid); err != nil && !errors.Is(err, filestore.ErrNotFound) {
			return removed, err
		}
		removedScenes[sid] = struct{}{}
		removed = append(removed, sid)
	}

	drafts, err := p.Entities(models.EntityTypeSceneDraft)
	if err != nil {
		return removed, err
	}
	for _, e := range drafts {
		d := e.(*models.SceneDraft)
		if _, ok := removedScenes[d.SceneID]; !ok {
			continue
		}
		if err := p.dir.Remove(models.EntityTypeSceneDraft, d.ID); err != nil {
			return removed, err
		}
		removed = append(removed, d.ID)
	}

	// Бывшие соседи перенумерованы
	if err := p.persist(tree.TakeDirty()); err != nil {
		return removed, err
	}
	return removed, nil
}

// ReIdentify moves an entity to a freshly claimed id. Children of a scene
// and drafts of a scene follow the new id. Returns the new id.
func (p *Project) ReIdentify(oldID int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.Find(oldID)
	if err != nil {
		return 0, err
	}
	newID, err := p.ids.ClaimNextID()
	if err != nil {
		return 0, err
	}

	moved, err := models.WithID(e, newID)
	if err != nil {
		return 0, err
	}
	// Сначала новый файл: при сбое сущность не теряется
	if err := p.dir.Write(moved); err != nil {
		return 0, err
	}
	if err := p.dir.Remove(e.EntityType(), oldID); err != nil {
		return 0, err
	}

	if e.EntityType() == models.EntityTypeScene {
		if err := p.repointScene(oldID, newID); err != nil {
			return newID, err
		}
	}

	p.logger.Info("entity re-identified", "old_id", oldID, "new_id", newID, "type", e.EntityType())
	return newID, nil
}

// repointScene переводит детей и черновики сцены на новый ID
func (p *Project) repointScene(oldID, newID int) error {
	scenes, err := p.Entities(models.EntityTypeScene)
	if err != nil {
		return err
	}
	for _, e := range scenes {
		s := e.(*models.Scene)
		if s.ParentID == oldID {
			s.ParentID = newID
			if err := p.dir.Write(s); err != nil {
				return err
			}
		}
	}

	drafts, err := p.Entities(models.EntityTypeSceneDraft)
	if err != nil {
		return err
	}
	for _, e := range drafts {
		d := e.(*models.SceneDraft)
		if d.SceneID == oldID {
			d.SceneID = newID
			if err := p.dir.Write(d); err != nil {
				return err
			}
		}
	}
	return nil
}
