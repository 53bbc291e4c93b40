package api

import (
	"sync"
	"time"

	"github.com/docsync/docsync/internal/event"
)

// eventRecord is the wire projection of one engine event. Node references
// are flattened to ids so the log stays valid after the nodes are gone.
type eventRecord struct {
	Type string         `json:"type"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// eventLog is a bounded ring of recent engine events.
type eventLog struct {
	mu      sync.Mutex
	max     int
	records []eventRecord
}

func newEventLog(max int) *eventLog {
	return &eventLog{max: max}
}

func (l *eventLog) append(e event.Event) {
	rec := eventRecord{
		Type: string(e.EventType()),
		At:   time.Now().UTC(),
		Data: projectEvent(e),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if len(l.records) > l.max {
		l.records = l.records[len(l.records)-l.max:]
	}
}

func (l *eventLog) snapshot() []eventRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]eventRecord, len(l.records))
	copy(out, l.records)
	return out
}

func projectEvent(e event.Event) map[string]any {
	switch ev := e.(type) {
	case event.ContentLoaded:
		return map[string]any{"format": ev.Format, "root_id": ev.Root.ID}
	case event.NodeUpdated:
		return map[string]any{"node_id": ev.Node.ID, "old_value": ev.OldValue, "new_value": ev.NewValue}
	case event.NodeAdded:
		return map[string]any{"parent_id": ev.Parent.ID, "node_id": ev.Node.ID}
	case event.NodeDeleted:
		data := map[string]any{"node_id": ev.Node.ID}
		if ev.Parent != nil {
			data["parent_id"] = ev.Parent.ID
		}
		return data
	case event.NodeMoved:
		data := map[string]any{"node_id": ev.Node.ID, "new_parent_id": ev.NewParent.ID, "index": ev.Index}
		if ev.OldParent != nil {
			data["old_parent_id"] = ev.OldParent.ID
		}
		return data
	case event.SourceUpdated:
		return map[string]any{"format": ev.Format, "bytes": len(ev.Source)}
	case event.ModeChanged:
		return map[string]any{"from_mode": ev.FromMode, "to_mode": ev.ToMode, "format": ev.Format}
	case event.ParseFailed:
		issues := make([]string, 0, len(ev.Errors))
		for _, iss := range ev.Errors {
			issues = append(issues, iss.String())
		}
		return map[string]any{"errors": issues}
	default:
		return nil
	}
}
