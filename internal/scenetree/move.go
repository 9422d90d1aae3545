package scenetree

import (
	"fmt"

	"github.com/iudanet/manuscript/internal/models"
)

// nodeState сохраненное состояние узла для отката.
type nodeState struct {
	node     *Node
	parent   *Node
	order    int
	parentID int
}

type snapshot struct {
	children map[*Node][]*Node
	nodes    []nodeState
	dirty    map[int]struct{}
}

func (t *Tree) takeSnapshot(parents ...*Node) snapshot {
	s := snapshot{
		children: make(map[*Node][]*Node, len(parents)),
		dirty:    make(map[int]struct{}, len(t.dirty)),
	}
	for id := range t.dirty {
		s.dirty[id] = struct{}{}
	}
	for _, p := range parents {
		if _, ok := s.children[p]; ok {
			continue
		}
		s.children[p] = append([]*Node(nil), p.children...)
		for _, c := range p.children {
			s.nodes = append(s.nodes, nodeState{
				node:     c,
				parent:   c.parent,
				order:    c.Item.Order,
				parentID: c.Item.ParentID,
			})
		}
	}
	return s
}

func (t *Tree) restore(s snapshot) {
	for p, kids := range s.children {
		p.children = kids
	}
	for _, st := range s.nodes {
		st.node.parent = st.parent
		st.node.Item.Order = st.order
		st.node.Item.ParentID = st.parentID
	}
	t.dirty = s.dirty
}

// resolveDestination находит родителя по координатам и проверяет, что
// координаты соответствуют текущему дереву.
func (t *Tree) resolveDestination(flat []*Node, coords Coordinates) (*Node, error) {
	if coords.ParentIndex < 0 || coords.ParentIndex >= len(flat) {
		return nil, fmt.Errorf("%w: parent index %d out of range", ErrInvalidPosition, coords.ParentIndex)
	}
	parent := flat[coords.ParentIndex]
	if !parent.canHaveChildren() {
		return nil, fmt.Errorf("%w: scene %d cannot contain scenes", ErrInvalidPosition, parent.ID())
	}

	// ChildLocalIndex == len(children) адресует конец списка
	if coords.ChildLocalIndex < 0 || coords.ChildLocalIndex > len(parent.children) {
		return nil, fmt.Errorf("%w: child index %d out of range", ErrInvalidPosition, coords.ChildLocalIndex)
	}

	if coords.ChildLocalIndex < len(parent.children) {
		sibling := parent.children[coords.ChildLocalIndex]
		if coords.GlobalIndex < 0 || coords.GlobalIndex >= len(flat) || flat[coords.GlobalIndex] != sibling {
			return nil, fmt.Errorf("%w: stale coordinates", ErrInvalidPosition)
		}
	}

	return parent, nil
}

// MoveScene перемещает сцену (вместе с поддеревом) до или после узла,
// заданного координатами. Координаты относятся к дереву до перемещения.
// После перемещения у старого и нового родителя Order перенумерованы 0..n-1.
func (t *Tree) MoveScene(id int, dest InsertPosition) error {
	src := t.index[id]
	if src == nil {
		return fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}
	if src == t.root {
		return fmt.Errorf("%w: root cannot be moved", ErrInvalidPosition)
	}

	flat := t.Flatten()
	destParent, err := t.resolveDestination(flat, dest.Coords)
	if err != nil {
		return err
	}

	for p := destParent; p != nil; p = p.parent {
		if p == src {
			return fmt.Errorf("%w: scene %d cannot be moved into itself", ErrInvalidPosition, id)
		}
	}

	fromParent := src.parent
	fromIndex := indexOf(fromParent.children, src)

	target := dest.Coords.ChildLocalIndex
	if !dest.Before {
		target++
	}
	// Удаление источника сдвигает индексы правее него
	if fromParent == destParent && fromIndex < target {
		target--
	}

	snap := t.takeSnapshot(fromParent, destParent)

	fromParent.children = append(fromParent.children[:fromIndex:fromIndex], fromParent.children[fromIndex+1:]...)

	if target < 0 {
		target = 0
	}
	if target > len(destParent.children) {
		target = len(destParent.children)
	}
	destParent.children = insertAt(destParent.children, target, src)
	src.parent = destParent

	t.renumber(fromParent)
	if destParent != fromParent {
		t.renumber(destParent)
	}

	if err := t.checkParents(fromParent, destParent); err != nil {
		t.restore(snap)
		t.logger.Error("scene move violated tree invariant", "scene_id", id, "error", err)
		if t.strict {
			panic(err)
		}
		return err
	}

	return nil
}

// Add appends a scene as the last child of parentID. The scene gets its
// Order and ParentID from the tree.
func (t *Tree) Add(parentID int, scene *models.Scene) error {
	if scene.ID == models.RootSceneID {
		return fmt.Errorf("%w: reserved root id", ErrInvalidPosition)
	}
	if _, exists := t.index[scene.ID]; exists {
		return fmt.Errorf("%w: duplicate scene id %d", ErrInvalidPosition, scene.ID)
	}
	parent := t.index[parentID]
	if parent == nil {
		return fmt.Errorf("%w: parent id %d", ErrNodeNotFound, parentID)
	}
	if !parent.canHaveChildren() {
		return fmt.Errorf("%w: scene %d cannot contain scenes", ErrInvalidPosition, parentID)
	}

	node := &Node{Item: *scene, parent: parent}
	node.Item.ParentID = parentID
	node.Item.Order = len(parent.children)
	parent.children = append(parent.children, node)
	t.index[scene.ID] = node
	t.markDirty(node)

	scene.ParentID = node.Item.ParentID
	scene.Order = node.Item.Order
	return nil
}

// Update replaces the non-structural fields of a scene (name, content, type).
// Turning a chapter with children into a scene is rejected.
func (t *Tree) Update(scene *models.Scene) error {
	node := t.index[scene.ID]
	if node == nil || node == t.root {
		return fmt.Errorf("%w: id %d", ErrNodeNotFound, scene.ID)
	}
	if scene.Type != models.SceneTypeChapter && len(node.children) > 0 {
		return fmt.Errorf("%w: chapter %d still has scenes", ErrInvalidPosition, scene.ID)
	}
	node.Item.Name = scene.Name
	node.Item.Type = scene.Type
	node.Item.Content = scene.Content
	return nil
}

// Remove detaches a scene with its whole subtree and renumbers its former
// siblings. Returns the ids of all removed scenes, the scene itself first.
func (t *Tree) Remove(id int) ([]int, error) {
	node := t.index[id]
	if node == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}
	if node == t.root {
		return nil, fmt.Errorf("%w: root cannot be removed", ErrInvalidPosition)
	}

	parent := node.parent
	idx := indexOf(parent.children, node)
	parent.children = append(parent.children[:idx:idx], parent.children[idx+1:]...)

	var removed []int
	var walk func(n *Node)
	walk = func(n *Node) {
		removed = append(removed, n.ID())
		delete(t.index, n.ID())
		delete(t.dirty, n.ID())
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(node)
	node.parent = nil

	t.renumber(parent)
	return removed, nil
}

func (t *Tree) checkParents(parents ...*Node) error {
	for _, p := range parents {
		if err := t.validateNode(p); err != nil {
			return err
		}
	}
	return nil
}

func insertAt(nodes []*Node, i int, n *Node) []*Node {
	nodes = append(nodes, nil)
	copy(nodes[i+1:], nodes[i:])
	nodes[i] = n
	return nodes
}
