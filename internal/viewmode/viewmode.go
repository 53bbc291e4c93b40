// Package viewmode coordinates the two live representations of a loaded
// document: the canonical tree and its source text. At most one of them
// accepts direct mutation at a time; the other is a frozen snapshot from
// the last successful transition.
package viewmode

import (
	"context"
	"fmt"

	"github.com/docsync/docsync/internal/event"
	"github.com/docsync/docsync/internal/model"
)

// Mode names the live representation.
type Mode string

const (
	ModeTree   Mode = "tree"
	ModeSource Mode = "source"
)

// Result is the outcome of a mode transition. Failed transitions leave
// the manager in its previous mode with all buffered state intact.
type Result struct {
	Success bool
	Err     error
}

// Option configures a Manager.
type Option func(*Manager)

// WithInitialMode sets the starting mode (default tree).
func WithInitialMode(m Mode) Option {
	return func(mgr *Manager) { mgr.mode = m }
}

// WithTheme sets the initial theme identifier carried across switches.
func WithTheme(theme string) Option {
	return func(mgr *Manager) { mgr.theme = theme }
}

type inlineEdit struct {
	nodeID string
	draft  string
}

// Manager governs tree/source transitions for one model. Transitions take
// a context and are async-shaped so a future streaming serializer can slot
// in without changing callers; today they resolve synchronously.
type Manager struct {
	model *model.Model
	hub   *event.Hub

	mode        Mode
	source      string // buffered source text, live while in source mode
	sourceDirty bool   // buffer edited since the last switch to source

	expanded map[string]bool
	selected string
	theme    string
	edit     *inlineEdit
}

// New returns a manager over the given model, publishing to hub.
func New(m *model.Model, hub *event.Hub, opts ...Option) *Manager {
	mgr := &Manager{
		model:    m,
		hub:      hub,
		mode:     ModeTree,
		expanded: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Mode returns the currently live representation.
func (m *Manager) Mode() Mode { return m.mode }

// SourceText returns the buffered source text. It is only meaningful in
// source mode or right after a successful switch away from it.
func (m *Manager) SourceText() string { return m.source }

// SwitchToSource serializes the tree and makes the source text the live
// representation. Any in-progress inline edit is cancelled first; its
// uncommitted value is discarded — that discard is part of the contract,
// not silent loss. On serializer failure nothing changes.
func (m *Manager) SwitchToSource(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}
	if m.mode == ModeSource {
		return Result{Success: true}
	}
	m.CancelEdit()

	source, err := m.model.SyncSource()
	if err != nil {
		return Result{Err: err}
	}
	m.source = source
	m.sourceDirty = false
	m.mode = ModeSource
	m.hub.Publish(event.ModeChanged{
		FromMode: string(ModeTree),
		ToMode:   string(ModeSource),
		Format:   m.model.Format(),
	})
	return Result{Success: true}
}

// SwitchToTree validates the buffered source and, if it was edited,
// reparses it into a new tree. Invalid text refuses the transition: the
// mode stays source, a parseError event carries the issues, and the
// buffer is left untouched for the user to fix. Expanded/selected node
// ids that no longer exist after a reparse are silently dropped.
func (m *Manager) SwitchToTree(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}
	if m.mode == ModeTree {
		return Result{Success: true}
	}

	if m.sourceDirty {
		validation, err := m.model.ValidateSource(m.source)
		if err != nil {
			return Result{Err: err}
		}
		if !validation.Valid {
			m.hub.Publish(event.ParseFailed{Content: m.source, Errors: validation.Errors})
			return Result{Err: fmt.Errorf("buffered source is not valid %s", m.model.Format())}
		}
		if err := m.model.LoadContent(m.source, m.model.Format()); err != nil {
			m.hub.Publish(event.ParseFailed{Content: m.source})
			return Result{Err: err}
		}
		m.pruneUIState()
	}
	// An unedited buffer needs no reparse: the tree is already the
	// consistent snapshot the source was serialized from, and keeping it
	// preserves node ids for the expanded/selected restore.

	m.mode = ModeTree
	m.hub.Publish(event.ModeChanged{
		FromMode: string(ModeSource),
		ToMode:   string(ModeTree),
		Format:   m.model.Format(),
	})
	return Result{Success: true}
}

// ToggleMode switches to whichever representation is not live.
func (m *Manager) ToggleMode(ctx context.Context) Result {
	if m.mode == ModeTree {
		return m.SwitchToSource(ctx)
	}
	return m.SwitchToTree(ctx)
}

func (m *Manager) pruneUIState() {
	for id := range m.expanded {
		if m.model.FindNode(id) == nil {
			delete(m.expanded, id)
		}
	}
	if m.selected != "" && m.model.FindNode(m.selected) == nil {
		m.selected = ""
	}
}

// SetSourceText replaces the buffered source. Only the source
// representation accepts direct mutation, so this fails in tree mode.
func (m *Manager) SetSourceText(text string) error {
	if m.mode != ModeSource {
		return fmt.Errorf("source text is read-only in %s mode", m.mode)
	}
	m.source = text
	m.sourceDirty = true
	return nil
}

// BeginEdit starts an inline edit of a node's value in the tree view.
// Starting a new edit cancels a pending one (last-writer-wins).
func (m *Manager) BeginEdit(nodeID string) error {
	if m.mode != ModeTree {
		return fmt.Errorf("inline edits are only available in tree mode")
	}
	n := m.model.FindNode(nodeID)
	if n == nil {
		return &model.NotFoundError{ID: nodeID}
	}
	m.edit = &inlineEdit{nodeID: nodeID, draft: n.Value}
	return nil
}

// SetEditDraft updates the uncommitted value of the pending edit.
func (m *Manager) SetEditDraft(value string) error {
	if m.edit == nil {
		return fmt.Errorf("no inline edit in progress")
	}
	m.edit.draft = value
	return nil
}

// CommitEdit applies the pending edit through the model and clears it.
func (m *Manager) CommitEdit() error {
	if m.edit == nil {
		return fmt.Errorf("no inline edit in progress")
	}
	edit := m.edit
	m.edit = nil
	return m.model.UpdateNodeValue(edit.nodeID, edit.draft)
}

// CancelEdit discards the pending edit, if any.
func (m *Manager) CancelEdit() {
	m.edit = nil
}

// EditingNode returns the id of the node under inline edit, or "".
func (m *Manager) EditingNode() string {
	if m.edit == nil {
		return ""
	}
	return m.edit.nodeID
}

// SetExpanded records whether a node is expanded in the tree view. The
// set is keyed by node id, not position, and survives mode switches.
func (m *Manager) SetExpanded(nodeID string, expanded bool) {
	if expanded {
		m.expanded[nodeID] = true
	} else {
		delete(m.expanded, nodeID)
	}
}

// IsExpanded reports whether a node id is recorded as expanded.
func (m *Manager) IsExpanded(nodeID string) bool { return m.expanded[nodeID] }

// ExpandedIDs lists the recorded expanded node ids.
func (m *Manager) ExpandedIDs() []string {
	out := make([]string, 0, len(m.expanded))
	for id := range m.expanded {
		out = append(out, id)
	}
	return out
}

// Select records the selected node id ("" clears the selection).
func (m *Manager) Select(nodeID string) { m.selected = nodeID }

// Selected returns the selected node id, or "".
func (m *Manager) Selected() string { return m.selected }

// SetTheme records the theme identifier preserved across switches.
func (m *Manager) SetTheme(theme string) { m.theme = theme }

// Theme returns the recorded theme identifier.
func (m *Manager) Theme() string { return m.theme }
