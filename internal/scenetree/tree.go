// Package scenetree хранит упорядоченную иерархию глав и сцен проекта.
//
// Инвариант: у каждого родителя children[i].Order == i. Координаты узлов
// (Coordinates) - снимок, который устаревает после любой мутации дерева.
package scenetree

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/iudanet/manuscript/internal/models"
)

var (
	// ErrNodeNotFound indicates that no scene with the given id exists in the tree
	ErrNodeNotFound = errors.New("scene not found in tree")

	// ErrInvalidPosition indicates stale or out-of-range coordinates
	ErrInvalidPosition = errors.New("invalid tree position")

	// ErrTreeCorrupted indicates a broken order invariant
	ErrTreeCorrupted = errors.New("scene tree corrupted")
)

// Node узел дерева. Item - копия сцены с актуальными Order и ParentID.
type Node struct {
	parent   *Node
	Item     models.Scene
	children []*Node
}

// ID returns the scene id of the node.
func (n *Node) ID() int { return n.Item.ID }

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the ordered children. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

func (n *Node) canHaveChildren() bool {
	return n.parent == nil || n.Item.IsChapter()
}

// Coordinates адрес узла в дереве для операций перемещения.
type Coordinates struct {
	ParentIndex     int // ParentIndex глобальный индекс родителя (-1 для корня)
	ChildLocalIndex int // ChildLocalIndex индекс среди детей родителя
	GlobalIndex     int // GlobalIndex индекс в обходе в глубину (корень = 0)
}

// InsertPosition куда вставить узел: до или после узла с координатами Coords.
type InsertPosition struct {
	Coords Coordinates
	Before bool
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used to report invariant violations.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tree) {
		t.logger = logger
	}
}

// WithStrict makes invariant violations panic instead of being rejected.
// Intended for tests and debug builds.
func WithStrict() Option {
	return func(t *Tree) {
		t.strict = true
	}
}

// Tree дерево сцен проекта.
type Tree struct {
	root   *Node
	index  map[int]*Node
	dirty  map[int]struct{}
	logger *slog.Logger
	strict bool
}

// New creates an empty tree containing only the root.
func New(opts ...Option) *Tree {
	t := &Tree{
		root: &Node{Item: models.Scene{
			ID:   models.RootSceneID,
			Type: models.SceneTypeChapter,
		}},
		index:  make(map[int]*Node),
		dirty:  make(map[int]struct{}),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.index[models.RootSceneID] = t.root
	return t
}

// Build строит дерево из сохраненных сцен. Дети упорядочиваются по (Order, ID).
// Сцены с отсутствующим родителем, родителем-сценой или циклом в цепочке
// родителей подвешиваются к корню. Порядок не перенумеровывается: для этого
// есть Normalize.
func Build(scenes []*models.Scene, opts ...Option) (*Tree, error) {
	t := New(opts...)

	byParent := make(map[int][]*models.Scene)
	for _, s := range scenes {
		if s.ID == models.RootSceneID {
			return nil, fmt.Errorf("%w: scene uses reserved root id %d", ErrTreeCorrupted, s.ID)
		}
		if _, exists := t.index[s.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate scene id %d", ErrTreeCorrupted, s.ID)
		}
		t.index[s.ID] = &Node{Item: *s}
		byParent[s.ParentID] = append(byParent[s.ParentID], s)
	}

	attach := func(parent *Node) []*Node {
		kids := byParent[parent.ID()]
		sort.SliceStable(kids, func(i, j int) bool {
			if kids[i].Order != kids[j].Order {
				return kids[i].Order < kids[j].Order
			}
			return kids[i].ID < kids[j].ID
		})
		var added []*Node
		for _, s := range kids {
			node := t.index[s.ID]
			if node.parent != nil {
				continue
			}
			node.parent = parent
			parent.children = append(parent.children, node)
			added = append(added, node)
		}
		return added
	}

	// Обход в ширину от корня: все, что не достижимо, - сироты
	queue := []*Node{t.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if !n.canHaveChildren() && len(byParent[n.ID()]) > 0 {
			t.logger.Warn("scene has children but is not a chapter", "scene_id", n.ID())
			continue
		}
		queue = append(queue, attach(n)...)
	}

	var orphans []*Node
	for id, n := range t.index {
		if id != models.RootSceneID && n.parent == nil {
			orphans = append(orphans, n)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].ID() < orphans[j].ID() })
	for _, n := range orphans {
		// Уже подвешен под другую сироту
		if n.parent != nil {
			continue
		}
		t.logger.Warn("orphan scene attached to root", "scene_id", n.ID(), "parent_id", n.Item.ParentID)
		n.parent = t.root
		t.root.children = append(t.root.children, n)
		n.Item.ParentID = models.RootSceneID
		t.markDirty(n)
		// Потомки сироты остаются под ней
		queue = []*Node{n}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.canHaveChildren() {
				queue = append(queue, attach(cur)...)
			}
		}
	}

	return t, nil
}

// Root returns the virtual root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Len returns the number of scenes, not counting the root.
func (t *Tree) Len() int {
	return len(t.index) - 1
}

// Find returns the node with the given id or nil.
func (t *Tree) Find(id int) *Node {
	return t.index[id]
}

// Flatten returns all nodes in depth-first pre-order. The root is at index 0.
func (t *Tree) Flatten() []*Node {
	out := make([]*Node, 0, len(t.index))
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}

// Coordinates returns the current coordinates of a node.
func (t *Tree) Coordinates(id int) (Coordinates, error) {
	flat := t.Flatten()
	for i, n := range flat {
		if n.ID() != id {
			continue
		}
		if n.parent == nil {
			return Coordinates{ParentIndex: -1, ChildLocalIndex: 0, GlobalIndex: 0}, nil
		}
		return Coordinates{
			ParentIndex:     indexOf(flat, n.parent),
			ChildLocalIndex: indexOf(n.parent.children, n),
			GlobalIndex:     i,
		}, nil
	}
	return Coordinates{}, fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
}

// Items returns copies of every scene in depth-first order, without the root.
func (t *Tree) Items() []*models.Scene {
	flat := t.Flatten()
	out := make([]*models.Scene, 0, len(flat)-1)
	for _, n := range flat[1:] {
		item := n.Item
		out = append(out, &item)
	}
	return out
}

// TakeDirty returns scenes whose Order or ParentID changed since the last
// call, and clears the dirty set.
func (t *Tree) TakeDirty() []*models.Scene {
	ids := make([]int, 0, len(t.dirty))
	for id := range t.dirty {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]*models.Scene, 0, len(ids))
	for _, id := range ids {
		if n, ok := t.index[id]; ok {
			item := n.Item
			out = append(out, &item)
		}
	}
	t.dirty = make(map[int]struct{})
	return out
}

// Validate checks the order invariant for the whole tree.
func (t *Tree) Validate() error {
	for _, n := range t.Flatten() {
		if err := t.validateNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) validateNode(n *Node) error {
	if !n.canHaveChildren() && len(n.children) > 0 {
		return fmt.Errorf("%w: scene %d has children", ErrTreeCorrupted, n.ID())
	}
	for i, c := range n.children {
		if c.Item.Order != i {
			return fmt.Errorf("%w: scene %d has order %d at index %d", ErrTreeCorrupted, c.ID(), c.Item.Order, i)
		}
		if c.parent != n || c.Item.ParentID != n.ID() {
			return fmt.Errorf("%w: scene %d has wrong parent", ErrTreeCorrupted, c.ID())
		}
	}
	return nil
}

// Normalize renumbers every sibling list to 0..n-1 keeping the current order.
// Returns the scenes that changed.
func (t *Tree) Normalize() []*models.Scene {
	for _, n := range t.Flatten() {
		t.renumber(n)
	}
	return t.TakeDirty()
}

// renumber выставляет Order и ParentID детям узла по их позиции.
func (t *Tree) renumber(parent *Node) {
	for i, c := range parent.children {
		if c.Item.Order != i || c.Item.ParentID != parent.ID() {
			c.Item.Order = i
			c.Item.ParentID = parent.ID()
			t.markDirty(c)
		}
	}
}

func (t *Tree) markDirty(n *Node) {
	if n == t.root {
		return
	}
	t.dirty[n.ID()] = struct{}{}
}

func indexOf(nodes []*Node, target *Node) int {
	for i, n := range nodes {
		if n == target {
			return i
		}
	}
	return -1
}
