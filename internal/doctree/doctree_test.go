package doctree

import (
	"testing"
)

func TestAppendSetsParent(t *testing.T) {
	root := New(KindObject)
	child := New(KindValue)
	root.Append(child)

	if child.Parent() != root {
		t.Error("expected child parent to be root")
	}
	if len(root.Children) != 1 || root.Children[0] != child {
		t.Error("expected root to own the child")
	}
}

func TestInsertClampsIndex(t *testing.T) {
	root := New(KindArray)
	a, b, c := New(KindValue), New(KindValue), New(KindValue)
	a.Value, b.Value, c.Value = "a", "b", "c"
	root.Append(a)
	root.Append(c)
	root.Insert(1, b)

	got := []string{root.Children[0].Value, root.Children[1].Value, root.Children[2].Value}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child[%d]: expected %q, got %q", i, want[i], got[i])
		}
	}

	d := New(KindValue)
	d.Value = "d"
	root.Insert(99, d)
	if root.Children[3].Value != "d" {
		t.Error("expected out-of-range insert to append")
	}

	e := New(KindValue)
	e.Value = "e"
	root.Insert(-5, e)
	if root.Children[0].Value != "e" {
		t.Error("expected negative insert to prepend")
	}
}

func TestRemoveClearsParent(t *testing.T) {
	root := New(KindObject)
	child := New(KindValue)
	root.Append(child)

	if !root.Remove(child) {
		t.Fatal("expected Remove to succeed")
	}
	if child.Parent() != nil {
		t.Error("expected removed child to have nil parent")
	}
	if len(root.Children) != 0 {
		t.Error("expected root to have no children")
	}
	if root.Remove(child) {
		t.Error("expected second Remove to fail")
	}
}

func TestIsAncestorOf(t *testing.T) {
	root := New(KindObject)
	mid := New(KindObject)
	leaf := New(KindValue)
	root.Append(mid)
	mid.Append(leaf)

	if !root.IsAncestorOf(leaf) {
		t.Error("root should be an ancestor of leaf")
	}
	if !mid.IsAncestorOf(leaf) {
		t.Error("mid should be an ancestor of leaf")
	}
	if leaf.IsAncestorOf(root) {
		t.Error("leaf should not be an ancestor of root")
	}
	if root.IsAncestorOf(root) {
		t.Error("a node is not its own ancestor")
	}
}

func TestWalkOrderAndCount(t *testing.T) {
	root := New(KindObject)
	a := New(KindObject)
	a.Name = "a"
	b := New(KindValue)
	b.Name = "b"
	c := New(KindValue)
	c.Name = "c"
	root.Append(a)
	a.Append(b)
	root.Append(c)

	var names []string
	root.Walk(func(n *Node) bool {
		names = append(names, n.Name)
		return true
	})
	want := []string{"", "a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("expected %d visits, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("visit[%d]: expected %q, got %q", i, want[i], names[i])
		}
	}
	if root.Count() != 4 {
		t.Errorf("expected count 4, got %d", root.Count())
	}
}

func TestStructuralEqualIgnoresIDs(t *testing.T) {
	build := func() *Node {
		root := New(KindObject)
		child := New(KindValue)
		child.Name = "a"
		child.Value = "1"
		child.ValueKind = ValueNumber
		root.Append(child)
		return root
	}
	a, b := build(), build()
	if a.Children[0].ID == b.Children[0].ID {
		t.Fatal("expected distinct ids")
	}
	if !StructuralEqual(a, b) {
		t.Error("expected trees with different ids to be structurally equal")
	}

	b.Children[0].Value = "2"
	if StructuralEqual(a, b) {
		t.Error("expected value difference to break structural equality")
	}
}

func TestStructuralEqualComparesMeta(t *testing.T) {
	a := New(KindElement)
	a.Name = "p"
	a.Meta.Attrs = []Attr{{Name: "class", Value: "x"}}
	b := New(KindElement)
	b.Name = "p"
	b.Meta.Attrs = []Attr{{Name: "class", Value: "y"}}

	if StructuralEqual(a, b) {
		t.Error("expected attribute difference to break structural equality")
	}
	b.Meta.Attrs[0].Value = "x"
	if !StructuralEqual(a, b) {
		t.Error("expected matching attributes to compare equal")
	}
}

func TestRepairRebuildsParents(t *testing.T) {
	root := &Node{ID: "r", Kind: KindObject}
	child := &Node{ID: "c", Kind: KindValue}
	grand := &Node{ID: "g", Kind: KindValue}
	child.Children = []*Node{grand}
	root.Children = []*Node{child}

	root.Repair()
	if child.Parent() != root || grand.Parent() != child {
		t.Error("expected Repair to set back-references for the whole subtree")
	}
}
