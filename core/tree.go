package core

import (
	"slices"

	"pkt.systems/owlcore/schema"
)

// tree is the tab forest: an arena of nodes keyed by ID plus an ordered root
// list. Sibling order keeps pinned tabs first; within the pinned and
// unpinned partitions, order is insertion order as adjusted by moves.
type tree struct {
	tabs  map[schema.TabID]*tab
	roots []schema.TabID
}

func newTree() *tree {
	return &tree{tabs: make(map[schema.TabID]*tab)}
}

func (tr *tree) get(id schema.TabID) (*tab, bool) {
	t, ok := tr.tabs[id]
	return t, ok
}

// siblings returns the sibling list the given parent owns. NoTab means the
// root list.
func (tr *tree) siblings(parent schema.TabID) []schema.TabID {
	if parent == schema.NoTab {
		return tr.roots
	}
	if p, ok := tr.tabs[parent]; ok {
		return p.Children
	}
	return nil
}

func (tr *tree) setSiblings(parent schema.TabID, ids []schema.TabID) {
	if parent == schema.NoTab {
		tr.roots = ids
		return
	}
	if p, ok := tr.tabs[parent]; ok {
		p.Children = ids
	}
}

// insert places t at the end of its parent's sibling list and re-enforces
// pinned-first order. The parent must exist when not NoTab.
func (tr *tree) insert(t *tab) error {
	if t.Parent != schema.NoTab {
		if _, ok := tr.tabs[t.Parent]; !ok {
			return schema.ErrTabNotFound
		}
	}
	tr.tabs[t.ID] = t
	tr.setSiblings(t.Parent, append(tr.siblings(t.Parent), t.ID))
	tr.reorderPinnedFirst(t.Parent)
	return nil
}

// remove deletes a single node, splicing its children into the vacated slot
// of the parent's sibling list in their existing order. The children's new
// parent is the removed node's parent.
func (tr *tree) remove(id schema.TabID) (*tab, error) {
	t, ok := tr.tabs[id]
	if !ok {
		return nil, schema.ErrTabNotFound
	}
	sibs := tr.siblings(t.Parent)
	if i := slices.Index(sibs, id); i >= 0 {
		sibs = slices.Delete(sibs, i, i+1)
		sibs = slices.Insert(sibs, i, t.Children...)
		tr.setSiblings(t.Parent, sibs)
	}
	for _, child := range t.Children {
		if c, ok := tr.tabs[child]; ok {
			c.Parent = t.Parent
		}
	}
	delete(tr.tabs, id)
	tr.reorderPinnedFirst(t.Parent)
	return t, nil
}

// removeSubtree detaches id from its parent and removes the whole subtree,
// returning the removed tabs depth-first with the root of the subtree first.
func (tr *tree) removeSubtree(id schema.TabID) ([]*tab, error) {
	t, ok := tr.tabs[id]
	if !ok {
		return nil, schema.ErrTabNotFound
	}
	sibs := tr.siblings(t.Parent)
	if i := slices.Index(sibs, id); i >= 0 {
		tr.setSiblings(t.Parent, slices.Delete(sibs, i, i+1))
	}
	var removed []*tab
	var collect func(*tab)
	collect = func(n *tab) {
		removed = append(removed, n)
		for _, child := range n.Children {
			if c, ok := tr.tabs[child]; ok {
				collect(c)
			}
		}
	}
	collect(t)
	for _, n := range removed {
		delete(tr.tabs, n.ID)
	}
	return removed, nil
}

// isAncestor reports whether anc is id itself or one of its ancestors.
func (tr *tree) isAncestor(anc, id schema.TabID) bool {
	for id != schema.NoTab {
		if id == anc {
			return true
		}
		t, ok := tr.tabs[id]
		if !ok {
			return false
		}
		id = t.Parent
	}
	return false
}

// move reparents id under parent at the given sibling index. Moving a node
// into its own subtree is rejected. Indexes past the end append; pinned
// order is re-enforced afterwards.
func (tr *tree) move(id, parent schema.TabID, index int) error {
	t, ok := tr.tabs[id]
	if !ok {
		return schema.ErrTabNotFound
	}
	if parent != schema.NoTab {
		if _, ok := tr.tabs[parent]; !ok {
			return schema.ErrTabNotFound
		}
		if tr.isAncestor(id, parent) {
			return schema.ErrInvalidMove
		}
	}
	sibs := tr.siblings(t.Parent)
	if i := slices.Index(sibs, id); i >= 0 {
		tr.setSiblings(t.Parent, slices.Delete(sibs, i, i+1))
	}
	t.Parent = parent
	dest := tr.siblings(parent)
	if index < 0 {
		index = 0
	}
	if index > len(dest) {
		index = len(dest)
	}
	tr.setSiblings(parent, slices.Insert(dest, index, id))
	tr.reorderPinnedFirst(parent)
	return nil
}

// reorderPinnedFirst stably partitions a sibling list so pinned tabs come
// first.
func (tr *tree) reorderPinnedFirst(parent schema.TabID) {
	sibs := tr.siblings(parent)
	if len(sibs) < 2 {
		return
	}
	ordered := make([]schema.TabID, 0, len(sibs))
	for _, id := range sibs {
		if t, ok := tr.tabs[id]; ok && t.Pinned {
			ordered = append(ordered, id)
		}
	}
	for _, id := range sibs {
		if t, ok := tr.tabs[id]; ok && !t.Pinned {
			ordered = append(ordered, id)
		}
	}
	tr.setSiblings(parent, ordered)
}

// successor picks the deterministic focus handoff target when the subtree
// rooted at id goes away: next sibling, else previous sibling, else parent,
// else the first remaining root. Returns NoTab when the forest empties.
func (tr *tree) successor(id schema.TabID) schema.TabID {
	t, ok := tr.tabs[id]
	if !ok {
		return schema.NoTab
	}
	sibs := tr.siblings(t.Parent)
	if i := slices.Index(sibs, id); i >= 0 {
		if i+1 < len(sibs) {
			return sibs[i+1]
		}
		if i > 0 {
			return sibs[i-1]
		}
	}
	if t.Parent != schema.NoTab {
		return t.Parent
	}
	for _, root := range tr.roots {
		if root != id {
			return root
		}
	}
	return schema.NoTab
}

// snapshot serializes the full forest.
func (tr *tree) snapshot(active schema.TabID) schema.TreeSnapshot {
	var build func(id schema.TabID) (schema.TabNode, bool)
	build = func(id schema.TabID) (schema.TabNode, bool) {
		t, ok := tr.tabs[id]
		if !ok {
			return schema.TabNode{}, false
		}
		node := t.Snapshot(active)
		node.Children = make([]schema.TabNode, 0, len(t.Children))
		for _, child := range t.Children {
			if c, ok := build(child); ok {
				node.Children = append(node.Children, c)
			}
		}
		return node, true
	}
	snap := schema.TreeSnapshot{Active: active, Roots: make([]schema.TabNode, 0, len(tr.roots))}
	for _, root := range tr.roots {
		if node, ok := build(root); ok {
			snap.Roots = append(snap.Roots, node)
		}
	}
	return snap
}

// each visits every tab in the forest in depth-first sibling order.
func (tr *tree) each(fn func(*tab)) {
	var walk func(id schema.TabID)
	walk = func(id schema.TabID) {
		t, ok := tr.tabs[id]
		if !ok {
			return
		}
		fn(t)
		for _, child := range t.Children {
			walk(child)
		}
	}
	for _, root := range tr.roots {
		walk(root)
	}
}
