package eventbus_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/colonyops/taskbook/internal/core/eventbus"
	"github.com/colonyops/taskbook/internal/core/eventbus/testbus"
	"github.com/colonyops/taskbook/internal/core/task"
)

func TestRegisterDebugLogger(t *testing.T) {
	tb := testbus.New(t)

	var buf bytes.Buffer
	eventbus.RegisterDebugLogger(tb.EventBus, zerolog.New(&buf).Level(zerolog.DebugLevel))

	tb.SubscribeTaskDeleted(func(eventbus.TaskDeletedPayload) { panic("boom") })

	tb.PublishTaskCreated(eventbus.TaskCreatedPayload{Task: task.Task{ID: "t1"}})
	tb.PublishTaskDeleted(eventbus.TaskDeletedPayload{TaskID: "t1"})

	tb.AssertPublished(t, eventbus.EventTaskDeleted)
	assert.Contains(t, buf.String(), `"event":"task.created"`)
	assert.Contains(t, buf.String(), "subscriber panicked")
	assert.Contains(t, buf.String(), `"panic":"boom"`)
}
