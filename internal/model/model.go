// Package model owns the canonical mutable tree for one loaded document.
// All reads and writes go through Model; consumers get read references to
// nodes and never mutate fields directly.
package model

import (
	"errors"
	"fmt"

	"github.com/docsync/docsync/internal/doctree"
	"github.com/docsync/docsync/internal/event"
	"github.com/docsync/docsync/internal/handler"
)

// ErrNoDocument is returned by operations that need a loaded document.
var ErrNoDocument = errors.New("no document loaded")

// NotFoundError reports a reference to a node id that is not in the
// document.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}

// NodeSpec describes a node for AddNode.
type NodeSpec struct {
	Kind      doctree.Kind
	Name      string
	Value     string
	ValueKind doctree.ValueKind
	Meta      doctree.Meta
}

// Model is the single source of truth for a loaded document. It is
// single-threaded by design: callers that share a Model across goroutines
// serialize access themselves (the HTTP collaborator does this with one
// mutex at its boundary).
type Model struct {
	registry *handler.Registry
	hub      *event.Hub

	doc    *doctree.Document
	active handler.Handler
	index  map[string]*doctree.Node
}

// New returns a model over the given handler registry, publishing to hub.
func New(registry *handler.Registry, hub *event.Hub) *Model {
	return &Model{registry: registry, hub: hub}
}

// RegisterHandler binds a handler to a format key; the last registration
// for a key wins.
func (m *Model) RegisterHandler(format string, h handler.Handler) error {
	return m.registry.Register(format, h)
}

// Registry exposes the handler registry for collaborators.
func (m *Model) Registry() *handler.Registry { return m.registry }

// Document returns the loaded document, or nil.
func (m *Model) Document() *doctree.Document { return m.doc }

// Root returns the current tree root, or nil.
func (m *Model) Root() *doctree.Node {
	if m.doc == nil {
		return nil
	}
	return m.doc.Root
}

// Format returns the loaded document's format identifier, or "".
func (m *Model) Format() string {
	if m.doc == nil {
		return ""
	}
	return m.doc.Format
}

// Dirty reports whether the tree has diverged from its source text.
func (m *Model) Dirty() bool {
	return m.doc != nil && m.doc.Dirty
}

// Subscribe registers an observer for model events.
func (m *Model) Subscribe(fn func(event.Event)) func() {
	return m.hub.Subscribe(fn)
}

// LoadContent parses text and atomically replaces the document. An empty
// format triggers auto-detection over registered handlers. On any parse
// failure the previous document is retained unchanged and the error is
// surfaced as-is.
func (m *Model) LoadContent(content, format string) error {
	var h handler.Handler
	var err error
	if format == "" {
		format, h, err = m.registry.Detect(content)
	} else {
		h, err = m.registry.Lookup(format)
	}
	if err != nil {
		return err
	}

	root, err := h.Parse(content)
	if err != nil {
		return err
	}

	m.doc = &doctree.Document{
		Root:   root,
		Format: format,
		Source: content,
	}
	m.active = h
	m.reindex()
	m.hub.Publish(event.ContentLoaded{Format: format, Root: root})
	return nil
}

// reindex rebuilds the id index in one pass over the tree. Mutation
// operations maintain the index incrementally; this batch path runs once
// per load so loading stays linear in tree size.
func (m *Model) reindex() {
	m.index = make(map[string]*doctree.Node, m.doc.Root.Count())
	m.doc.Root.Walk(func(n *doctree.Node) bool {
		m.index[n.ID] = n
		return true
	})
}

// FindNode resolves an id in O(1). Unknown ids return nil, never an error.
func (m *Model) FindNode(id string) *doctree.Node {
	return m.index[id]
}

// UpdateNodeValue edits a node's scalar payload in place. Setting the
// value it already has is a no-op: the dirty flag is untouched and no
// event fires.
func (m *Model) UpdateNodeValue(id, value string) error {
	n := m.FindNode(id)
	if n == nil {
		return &NotFoundError{ID: id}
	}
	if n.Value == value {
		return nil
	}
	old := n.Value
	n.Value = value
	m.doc.Dirty = true
	m.hub.Publish(event.NodeUpdated{Node: n, OldValue: old, NewValue: value})
	return nil
}

// AddNode creates a node from spec with a fresh unique id and appends it
// to the given parent.
func (m *Model) AddNode(parentID string, spec NodeSpec) (*doctree.Node, error) {
	parent := m.FindNode(parentID)
	if parent == nil {
		return nil, &NotFoundError{ID: parentID}
	}
	n := doctree.New(spec.Kind)
	n.Name = spec.Name
	n.Value = spec.Value
	n.ValueKind = spec.ValueKind
	n.Meta = spec.Meta

	parent.Append(n)
	m.index[n.ID] = n
	m.doc.Dirty = true
	m.hub.Publish(event.NodeAdded{Parent: parent, Node: n})
	return n, nil
}

// DeleteNode removes a node and its whole subtree. Every descendant id
// leaves the index, so FindNode on any of them returns nil afterwards.
// The root is not deletable; load new content instead.
func (m *Model) DeleteNode(id string) error {
	n := m.FindNode(id)
	if n == nil {
		return &NotFoundError{ID: id}
	}
	if n == m.doc.Root {
		return fmt.Errorf("delete node: cannot delete the document root")
	}
	parent := n.Parent()
	n.Detach()
	n.Walk(func(d *doctree.Node) bool {
		delete(m.index, d.ID)
		return true
	})
	m.doc.Dirty = true
	m.hub.Publish(event.NodeDeleted{Node: n, Parent: parent})
	return nil
}

// MoveNode reattaches a node under a new parent at the given child index
// (clamped). Moves that would make a node its own ancestor are refused to
// keep the tree acyclic. Ids are unchanged, so the index needs no update.
func (m *Model) MoveNode(id, newParentID string, index int) error {
	n := m.FindNode(id)
	if n == nil {
		return &NotFoundError{ID: id}
	}
	newParent := m.FindNode(newParentID)
	if newParent == nil {
		return &NotFoundError{ID: newParentID}
	}
	if n == m.doc.Root {
		return fmt.Errorf("move node: cannot move the document root")
	}
	if n == newParent || n.IsAncestorOf(newParent) {
		return fmt.Errorf("move node: %s is an ancestor of the target parent", id)
	}
	oldParent := n.Parent()
	n.Detach()
	newParent.Insert(index, n)
	m.doc.Dirty = true
	m.hub.Publish(event.NodeMoved{Node: n, OldParent: oldParent, NewParent: newParent, Index: index})
	return nil
}

// SyncSource serializes the current tree through the active handler,
// caches the text on the document, and clears the dirty flag. The caller
// decides when to invoke it; serialization failure leaves the document
// untouched.
func (m *Model) SyncSource() (string, error) {
	if m.doc == nil {
		return "", ErrNoDocument
	}
	source, err := m.active.Serialize(m.doc.Root)
	if err != nil {
		return "", err
	}
	m.doc.Source = source
	m.doc.Dirty = false
	m.hub.Publish(event.SourceUpdated{Format: m.doc.Format, Source: source})
	return source, nil
}

// ValidateSource checks text against the active handler without touching
// the document.
func (m *Model) ValidateSource(content string) (handler.Validation, error) {
	if m.active == nil {
		return handler.Validation{}, ErrNoDocument
	}
	return m.active.Validate(content), nil
}
