// Package event defines the typed notifications the engine publishes and
// a small synchronous observer hub. External collaborators (view layers,
// the HTTP surface) subscribe here; the core never renders anything.
package event

import (
	"sync"

	"github.com/docsync/docsync/internal/doctree"
	"github.com/docsync/docsync/internal/handler"
)

// Type identifies an event variant.
type Type string

const (
	TypeContentLoaded Type = "contentLoaded"
	TypeNodeUpdated   Type = "nodeUpdated"
	TypeNodeAdded     Type = "nodeAdded"
	TypeNodeDeleted   Type = "nodeDeleted"
	TypeNodeMoved     Type = "nodeMoved"
	TypeSourceUpdated Type = "sourceUpdated"
	TypeModeChanged   Type = "modeChange"
	TypeParseFailed   Type = "parseError"
)

// Event is implemented by every notification value.
type Event interface {
	EventType() Type
}

// ContentLoaded fires after a successful LoadContent replaced the tree.
type ContentLoaded struct {
	Format string
	Root   *doctree.Node
}

func (ContentLoaded) EventType() Type { return TypeContentLoaded }

// NodeUpdated fires after an in-place value edit.
type NodeUpdated struct {
	Node     *doctree.Node
	OldValue string
	NewValue string
}

func (NodeUpdated) EventType() Type { return TypeNodeUpdated }

// NodeAdded fires after a node is attached to a parent.
type NodeAdded struct {
	Parent *doctree.Node
	Node   *doctree.Node
}

func (NodeAdded) EventType() Type { return TypeNodeAdded }

// NodeDeleted fires after a node and its descendants are removed.
type NodeDeleted struct {
	Node   *doctree.Node
	Parent *doctree.Node
}

func (NodeDeleted) EventType() Type { return TypeNodeDeleted }

// NodeMoved fires after a node is reattached under a new parent.
type NodeMoved struct {
	Node      *doctree.Node
	OldParent *doctree.Node
	NewParent *doctree.Node
	Index     int
}

func (NodeMoved) EventType() Type { return TypeNodeMoved }

// SourceUpdated fires after SyncSource serialized the tree.
type SourceUpdated struct {
	Format string
	Source string
}

func (SourceUpdated) EventType() Type { return TypeSourceUpdated }

// ModeChanged fires after a successful view-mode transition.
type ModeChanged struct {
	FromMode string
	ToMode   string
	Format   string
}

func (ModeChanged) EventType() Type { return TypeModeChanged }

// ParseFailed fires when a tree-mode switch is refused because the
// buffered source text does not validate. The buffered text is left
// untouched; Errors is what the UI renders inline.
type ParseFailed struct {
	Content string
	Errors  []handler.Issue
}

func (ParseFailed) EventType() Type { return TypeParseFailed }

// Hub is an ordered observer list. Publishing is synchronous and in
// subscription order; the engine is single-threaded so handlers run on
// the caller's goroutine. The mutex only guards the subscriber slice so
// Subscribe is safe from collaborator setup code.
type Hub struct {
	mu   sync.Mutex
	next int
	subs []subscription
}

type subscription struct {
	id int
	fn func(Event)
}

// NewHub returns an empty hub.
func NewHub() *Hub { return &Hub{} }

// Subscribe registers fn for every published event and returns an
// unsubscribe function.
func (h *Hub) Subscribe(fn func(Event)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs = append(h.subs, subscription{id: id, fn: fn})
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every subscriber in order.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	subs := make([]subscription, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()
	for _, s := range subs {
		s.fn(e)
	}
}
