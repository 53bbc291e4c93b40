// Package doctree holds the canonical in-memory tree that every format
// handler parses into and serializes from.
package doctree

import (
	"github.com/google/uuid"
)

// Kind classifies a node. The set of kinds a document uses depends on its
// format: JSON trees use object/array/value, XML trees use
// element/text/cdata/comment, Markdown and plain text use
// document/heading/content.
type Kind string

const (
	KindDocument Kind = "document"
	KindObject   Kind = "object"
	KindArray    Kind = "array"
	KindValue    Kind = "value"
	KindElement  Kind = "element"
	KindText     Kind = "text"
	KindCData    Kind = "cdata"
	KindHeading  Kind = "heading"
	KindContent  Kind = "content"
	KindComment  Kind = "comment"
)

// ValueKind refines KindValue nodes with the scalar type of the payload.
// Number values keep their raw source text so serialization does not
// reformat them.
type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueNumber ValueKind = "number"
	ValueBool   ValueKind = "bool"
	ValueNull   ValueKind = "null"
)

// ContentKind is the sub-kind of a Markdown/text "content" node.
type ContentKind string

const (
	ContentParagraph  ContentKind = "paragraph"
	ContentList       ContentKind = "list"
	ContentCode       ContentKind = "code"
	ContentBlockquote ContentKind = "blockquote"
)

// Attr is one XML attribute. Order is preserved.
type Attr struct {
	Name  string
	Value string
}

// Meta carries format-specific annotations.
type Meta struct {
	Attrs        []Attr      // XML attributes, in document order
	HeadingLevel int         // Markdown/HTML heading level (1-6), 0 if N/A
	ContentKind  ContentKind // sub-kind of content nodes
	CodeLang     string      // fenced code block language tag
}

// Node is one element of the canonical tree. IDs are unique within a
// document and stable across edits; they are reassigned on reparse.
type Node struct {
	ID        string
	Kind      Kind
	Name      string // key / tag / heading text; empty when N/A
	Value     string // scalar payload; empty for containers
	ValueKind ValueKind
	Meta      Meta
	Children  []*Node

	parent *Node // non-owning back-reference, traversal only
}

// New creates a node of the given kind with a fresh unique id.
func New(kind Kind) *Node {
	return &Node{ID: uuid.NewString(), Kind: kind}
}

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Append adds child at the end of n's children and sets its back-reference.
func (n *Node) Append(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// Insert adds child at index i, clamped to [0, len(children)].
func (n *Node) Insert(i int, child *Node) {
	if i < 0 {
		i = 0
	}
	if i > len(n.Children) {
		i = len(n.Children)
	}
	child.parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
}

// Remove detaches child from n. It returns false if child is not a direct
// child of n.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Detach removes n from its parent, if any.
func (n *Node) Detach() {
	if n.parent != nil {
		n.parent.Remove(n)
	}
}

// IsAncestorOf reports whether n is a (transitive) ancestor of other.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Walk visits n and every descendant in depth-first document order. The
// visit function returns false to stop the walk.
func (n *Node) Walk(visit func(*Node) bool) bool {
	if !visit(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(visit) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node) bool {
		total++
		return true
	})
	return total
}

// Repair rebuilds parent back-references for the whole subtree. Handlers
// that construct trees by filling Children directly call this once before
// returning the root.
func (n *Node) Repair() {
	for _, c := range n.Children {
		c.parent = n
		c.Repair()
	}
}

// StructuralEqual reports whether two trees are isomorphic: same kind,
// name, value, metadata and children order. IDs are ignored, which makes
// this the round-trip comparison: parse(serialize(t)) must be
// StructuralEqual to t even though every node gets a fresh id.
func StructuralEqual(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Name != b.Name || a.Value != b.Value || a.ValueKind != b.ValueKind {
		return false
	}
	if !metaEqual(a.Meta, b.Meta) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !StructuralEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func metaEqual(a, b Meta) bool {
	if a.HeadingLevel != b.HeadingLevel || a.ContentKind != b.ContentKind || a.CodeLang != b.CodeLang {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for i := range a.Attrs {
		if a.Attrs[i] != b.Attrs[i] {
			return false
		}
	}
	return true
}

// Shape is an exported, comparable projection of a subtree with ids and
// back-references stripped. Tests diff Shapes with go-cmp to get readable
// failure output.
type Shape struct {
	Kind      Kind
	Name      string
	Value     string
	ValueKind ValueKind
	Meta      Meta
	Children  []Shape
}

// ShapeOf projects the subtree rooted at n.
func ShapeOf(n *Node) Shape {
	s := Shape{
		Kind:      n.Kind,
		Name:      n.Name,
		Value:     n.Value,
		ValueKind: n.ValueKind,
		Meta:      n.Meta,
	}
	for _, c := range n.Children {
		s.Children = append(s.Children, ShapeOf(c))
	}
	return s
}

// Document pairs a root tree with the source text it was last synchronized
// with. Dirty means the tree has diverged from Source since the last parse
// or serialize.
type Document struct {
	Root   *Node
	Format string
	Source string
	Dirty  bool
}
