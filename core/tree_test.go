package core

import (
	"errors"
	"testing"

	"pkt.systems/owlcore/schema"
)

func addTab(t *testing.T, tr *tree, id, parent schema.TabID, pinned bool) *tab {
	t.Helper()
	node := &tab{ID: id, Parent: parent, Pinned: pinned}
	if err := tr.insert(node); err != nil {
		t.Fatalf("insert %d: %v", id, err)
	}
	return node
}

func TestTreePinnedFirstOrder(t *testing.T) {
	tr := newTree()
	addTab(t, tr, 1, schema.NoTab, false)
	addTab(t, tr, 2, schema.NoTab, true)
	addTab(t, tr, 3, schema.NoTab, false)
	addTab(t, tr, 4, schema.NoTab, true)
	want := []schema.TabID{2, 4, 1, 3}
	for i, id := range want {
		if tr.roots[i] != id {
			t.Fatalf("root order %v, want %v", tr.roots, want)
		}
	}
	// Unpinning re-partitions stably.
	tab2, _ := tr.get(2)
	tab2.Pinned = false
	tr.reorderPinnedFirst(schema.NoTab)
	want = []schema.TabID{4, 2, 1, 3}
	for i, id := range want {
		if tr.roots[i] != id {
			t.Fatalf("root order after unpin %v, want %v", tr.roots, want)
		}
	}
}

func TestTreeMoveRejectsCycle(t *testing.T) {
	tr := newTree()
	addTab(t, tr, 1, schema.NoTab, false)
	addTab(t, tr, 2, 1, false)
	addTab(t, tr, 3, 2, false)
	if err := tr.move(1, 3, 0); !errors.Is(err, schema.ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove, got %v", err)
	}
	if err := tr.move(1, 1, 0); !errors.Is(err, schema.ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for self-parent, got %v", err)
	}
	// Moving a leaf up is fine.
	if err := tr.move(3, schema.NoTab, 0); err != nil {
		t.Fatalf("move to root: %v", err)
	}
	if tr.roots[0] != 3 {
		t.Fatalf("expected 3 first in roots, got %v", tr.roots)
	}
}

func TestTreeMoveClampsIndex(t *testing.T) {
	tr := newTree()
	addTab(t, tr, 1, schema.NoTab, false)
	addTab(t, tr, 2, schema.NoTab, false)
	addTab(t, tr, 3, schema.NoTab, false)
	if err := tr.move(1, schema.NoTab, 99); err != nil {
		t.Fatalf("move: %v", err)
	}
	if tr.roots[len(tr.roots)-1] != 1 {
		t.Fatalf("expected 1 appended, got %v", tr.roots)
	}
}

func TestTreeRemoveSubtree(t *testing.T) {
	tr := newTree()
	addTab(t, tr, 1, schema.NoTab, false)
	addTab(t, tr, 2, 1, false)
	addTab(t, tr, 3, 2, false)
	addTab(t, tr, 4, schema.NoTab, false)
	removed, err := tr.removeSubtree(1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("expected 3 removed, got %d", len(removed))
	}
	if removed[0].ID != 1 {
		t.Fatalf("subtree root should come first, got %d", removed[0].ID)
	}
	for _, id := range []schema.TabID{1, 2, 3} {
		if _, ok := tr.get(id); ok {
			t.Fatalf("tab %d should be gone", id)
		}
	}
	if len(tr.roots) != 1 || tr.roots[0] != 4 {
		t.Fatalf("unexpected roots %v", tr.roots)
	}
}

func TestTreeSuccessorOrder(t *testing.T) {
	tr := newTree()
	addTab(t, tr, 1, schema.NoTab, false)
	addTab(t, tr, 2, schema.NoTab, false)
	addTab(t, tr, 3, schema.NoTab, false)
	addTab(t, tr, 4, 2, false)

	// Middle sibling: next sibling wins.
	if got := tr.successor(2); got != 3 {
		t.Fatalf("successor(2) = %d, want 3", got)
	}
	// Last sibling: previous sibling.
	if got := tr.successor(3); got != 2 {
		t.Fatalf("successor(3) = %d, want 2", got)
	}
	// Only child: parent.
	if got := tr.successor(4); got != 2 {
		t.Fatalf("successor(4) = %d, want 2", got)
	}
	// Sole root falls through to the first other root.
	if got := tr.successor(1); got != 2 {
		t.Fatalf("successor(1) = %d, want 2", got)
	}
	tr2 := newTree()
	addTab(t, tr2, 9, schema.NoTab, false)
	if got := tr2.successor(9); got != schema.NoTab {
		t.Fatalf("successor of last tab = %d, want NoTab", got)
	}
}

func TestTreeSnapshotNesting(t *testing.T) {
	tr := newTree()
	addTab(t, tr, 1, schema.NoTab, false).Title = "root"
	addTab(t, tr, 2, 1, false).Title = "child"
	snap := tr.snapshot(2)
	if len(snap.Roots) != 1 {
		t.Fatalf("expected one root, got %d", len(snap.Roots))
	}
	root := snap.Roots[0]
	if root.IsActive {
		t.Fatalf("root should not be active")
	}
	if len(root.Children) != 1 || root.Children[0].ID != 2 {
		t.Fatalf("unexpected children %+v", root.Children)
	}
	if !root.Children[0].IsActive {
		t.Fatalf("child should be active")
	}
	if snap.Active != 2 {
		t.Fatalf("active = %d, want 2", snap.Active)
	}
}
