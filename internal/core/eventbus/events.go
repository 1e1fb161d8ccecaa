// Package eventbus provides a typed, synchronous publish/subscribe registry
// that repositories use to announce task and user mutations.
package eventbus

import (
	"github.com/colonyops/taskbook/internal/core/task"
	"github.com/colonyops/taskbook/internal/core/user"
)

// Event names a kind of mutation.
type Event string

// Keep list sorted A-Z
const (
	EventTaskCreated Event = "task.created"
	EventTaskDeleted Event = "task.deleted"
	EventTaskUpdated Event = "task.updated"
	EventUserCreated Event = "user.created"
	EventUserUpdated Event = "user.updated"
)

// Events lists every event the bus can carry.
var Events = []Event{
	EventTaskCreated,
	EventTaskDeleted,
	EventTaskUpdated,
	EventUserCreated,
	EventUserUpdated,
}

// TaskCreatedPayload is emitted after a task is stored.
type TaskCreatedPayload struct {
	Task task.Task
}

// TaskUpdatedPayload is emitted after a task change is stored.
type TaskUpdatedPayload struct {
	Task     task.Task
	Previous task.Task
}

// TaskDeletedPayload is emitted after a task is removed.
type TaskDeletedPayload struct {
	TaskID string
}

// UserCreatedPayload is emitted after a user registers.
type UserCreatedPayload struct {
	User user.User
}

// UserUpdatedPayload is emitted after a profile, preference, role,
// activation or login change.
type UserUpdatedPayload struct {
	User user.User
}
