package eventbus

import "sync"

// EventBus dispatches events to subscribers on the publishing goroutine.
// Publishing on a nil *EventBus is a no-op.
type EventBus struct {
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates an empty bus.
func New() *EventBus {
	return &EventBus{subs: make(map[Event][]func(any))}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

func (bus *EventBus) subscribers(event Event) []func(any) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	subs := make([]func(any), len(bus.subs[event]))
	copy(subs, bus.subs[event])
	return subs
}

func subscribe[P any](bus *EventBus, event Event, fn func(P)) {
	bus.subscribe(event, func(payload any) {
		if p, ok := payload.(P); ok {
			fn(p)
		}
	})
}

func (bus *EventBus) SubscribeTaskCreated(fn func(TaskCreatedPayload)) {
	subscribe(bus, EventTaskCreated, fn)
}

func (bus *EventBus) SubscribeTaskUpdated(fn func(TaskUpdatedPayload)) {
	subscribe(bus, EventTaskUpdated, fn)
}

func (bus *EventBus) SubscribeTaskDeleted(fn func(TaskDeletedPayload)) {
	subscribe(bus, EventTaskDeleted, fn)
}

func (bus *EventBus) SubscribeUserCreated(fn func(UserCreatedPayload)) {
	subscribe(bus, EventUserCreated, fn)
}

func (bus *EventBus) SubscribeUserUpdated(fn func(UserUpdatedPayload)) {
	subscribe(bus, EventUserUpdated, fn)
}

func (bus *EventBus) PublishTaskCreated(p TaskCreatedPayload) { bus.send(EventTaskCreated, p) }
func (bus *EventBus) PublishTaskUpdated(p TaskUpdatedPayload) { bus.send(EventTaskUpdated, p) }
func (bus *EventBus) PublishTaskDeleted(p TaskDeletedPayload) { bus.send(EventTaskDeleted, p) }
func (bus *EventBus) PublishUserCreated(p UserCreatedPayload) { bus.send(EventUserCreated, p) }
func (bus *EventBus) PublishUserUpdated(p UserUpdatedPayload) { bus.send(EventUserUpdated, p) }
