// Package testbus provides test utilities for the event bus.
// It wraps a real EventBus with event recording and assertion helpers.
package testbus

import (
	"sync"
	"testing"

	"github.com/colonyops/taskbook/internal/core/eventbus"
)

// RecordedEvent holds a captured event name and payload.
type RecordedEvent struct {
	Event   eventbus.Event
	Payload any
}

// Bus wraps a real EventBus with event recording for tests.
type Bus struct {
	*eventbus.EventBus

	mu     sync.Mutex
	events []RecordedEvent
}

// New creates a test bus that records every published event.
func New(t *testing.T) *Bus {
	t.Helper()

	tb := &Bus{EventBus: eventbus.New()}
	tb.OnPublish(tb.record)
	return tb
}

func (tb *Bus) record(event eventbus.Event, payload any) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = append(tb.events, RecordedEvent{Event: event, Payload: payload})
}

// Events returns a copy of all recorded events.
func (tb *Bus) Events() []RecordedEvent {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]RecordedEvent, len(tb.events))
	copy(out, tb.events)
	return out
}

// Names returns the recorded event names in publish order.
func (tb *Bus) Names() []eventbus.Event {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]eventbus.Event, 0, len(tb.events))
	for _, e := range tb.events {
		out = append(out, e.Event)
	}
	return out
}

// Reset clears all recorded events.
func (tb *Bus) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = nil
}

func (tb *Bus) has(event eventbus.Event) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for _, e := range tb.events {
		if e.Event == event {
			return true
		}
	}
	return false
}

// AssertPublished asserts that an event of the given type was recorded.
func (tb *Bus) AssertPublished(t *testing.T, event eventbus.Event) {
	t.Helper()
	if !tb.has(event) {
		t.Errorf("expected event %q to be published, but it was not", event)
	}
}

// AssertNotPublished asserts that an event of the given type was NOT recorded.
func (tb *Bus) AssertNotPublished(t *testing.T, event eventbus.Event) {
	t.Helper()
	if tb.has(event) {
		t.Errorf("expected event %q to NOT be published, but it was", event)
	}
}

// Last returns the payload of the most recent event of the given type.
func Last[P any](tb *Bus, event eventbus.Event) (P, bool) {
	events := tb.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Event != event {
			continue
		}
		p, ok := events[i].Payload.(P)
		return p, ok
	}
	var zero P
	return zero, false
}
