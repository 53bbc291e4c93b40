package event

import (
	"testing"
)

func TestHubDeliversInSubscriptionOrder(t *testing.T) {
	hub := NewHub()
	var order []int
	hub.Subscribe(func(Event) { order = append(order, 1) })
	hub.Subscribe(func(Event) { order = append(order, 2) })

	hub.Publish(SourceUpdated{Format: "json"})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected delivery order [1 2], got %v", order)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	calls := 0
	unsub := hub.Subscribe(func(Event) { calls++ })

	hub.Publish(SourceUpdated{})
	unsub()
	hub.Publish(SourceUpdated{})

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}

	// Unsubscribing twice is harmless.
	unsub()
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		e    Event
		want Type
	}{
		{ContentLoaded{}, TypeContentLoaded},
		{NodeUpdated{}, TypeNodeUpdated},
		{NodeAdded{}, TypeNodeAdded},
		{NodeDeleted{}, TypeNodeDeleted},
		{NodeMoved{}, TypeNodeMoved},
		{SourceUpdated{}, TypeSourceUpdated},
		{ModeChanged{}, TypeModeChanged},
		{ParseFailed{}, TypeParseFailed},
	}
	for _, tt := range tests {
		if got := tt.e.EventType(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
