package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskbook/internal/core/eventbus"
	"github.com/colonyops/taskbook/internal/core/eventbus/testbus"
	"github.com/colonyops/taskbook/internal/core/task"
	"github.com/colonyops/taskbook/internal/core/user"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := eventbus.New()

	var got []string
	bus.SubscribeTaskCreated(func(p eventbus.TaskCreatedPayload) { got = append(got, "first:"+p.Task.ID) })
	bus.SubscribeTaskCreated(func(p eventbus.TaskCreatedPayload) { got = append(got, "second:"+p.Task.ID) })
	bus.SubscribeTaskUpdated(func(p eventbus.TaskUpdatedPayload) { got = append(got, "updated:"+p.Previous.Title) })
	bus.SubscribeUserCreated(func(p eventbus.UserCreatedPayload) { got = append(got, "user:"+p.User.Username) })
	bus.SubscribeUserUpdated(func(p eventbus.UserUpdatedPayload) { got = append(got, "user-updated:"+p.User.Username) })
	bus.SubscribeTaskDeleted(func(p eventbus.TaskDeletedPayload) { got = append(got, "deleted:"+p.TaskID) })

	bus.PublishTaskCreated(eventbus.TaskCreatedPayload{Task: task.Task{ID: "t1"}})
	bus.PublishTaskUpdated(eventbus.TaskUpdatedPayload{Previous: task.Task{Title: "old"}})
	bus.PublishUserCreated(eventbus.UserCreatedPayload{User: user.User{Username: "alice"}})
	bus.PublishUserUpdated(eventbus.UserUpdatedPayload{User: user.User{Username: "alice"}})
	bus.PublishTaskDeleted(eventbus.TaskDeletedPayload{TaskID: "t1"})

	assert.Equal(t, []string{"first:t1", "second:t1", "updated:old", "user:alice", "user-updated:alice", "deleted:t1"}, got)
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	bus := eventbus.New()

	var panics []any
	bus.OnPanic(func(_ eventbus.Event, _ any, recovered any) { panics = append(panics, recovered) })
	bus.OnPanic(func(eventbus.Event, any, any) { panic("hook panics too") })

	delivered := false
	bus.SubscribeTaskDeleted(func(eventbus.TaskDeletedPayload) { panic("boom") })
	bus.SubscribeTaskDeleted(func(eventbus.TaskDeletedPayload) { delivered = true })

	assert.NotPanics(t, func() {
		bus.PublishTaskDeleted(eventbus.TaskDeletedPayload{TaskID: "x"})
	})
	assert.True(t, delivered)
	assert.Equal(t, []any{"boom"}, panics)
}

func TestOnSubscribe(t *testing.T) {
	bus := eventbus.New()

	var subscribed []eventbus.Event
	bus.OnSubscribe(func(e eventbus.Event) { subscribed = append(subscribed, e) })
	bus.SubscribeUserCreated(func(eventbus.UserCreatedPayload) {})

	assert.Equal(t, []eventbus.Event{eventbus.EventUserCreated}, subscribed)
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *eventbus.EventBus
	assert.NotPanics(t, func() {
		bus.PublishTaskCreated(eventbus.TaskCreatedPayload{})
	})
}

func TestTestBus(t *testing.T) {
	tb := testbus.New(t)

	tb.PublishTaskCreated(eventbus.TaskCreatedPayload{Task: task.Task{ID: "a"}})
	tb.PublishTaskCreated(eventbus.TaskCreatedPayload{Task: task.Task{ID: "b"}})

	tb.AssertPublished(t, eventbus.EventTaskCreated)
	tb.AssertNotPublished(t, eventbus.EventTaskDeleted)
	assert.Equal(t, []eventbus.Event{eventbus.EventTaskCreated, eventbus.EventTaskCreated}, tb.Names())

	last, ok := testbus.Last[eventbus.TaskCreatedPayload](tb, eventbus.EventTaskCreated)
	require.True(t, ok)
	assert.Equal(t, "b", last.Task.ID)

	tb.Reset()
	assert.Empty(t, tb.Events())
}
