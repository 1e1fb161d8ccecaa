package taskbook

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskbook/internal/core/entity"
	"github.com/colonyops/taskbook/internal/core/eventbus"
	"github.com/colonyops/taskbook/internal/core/gateway"
	"github.com/colonyops/taskbook/internal/core/logging"
	"github.com/colonyops/taskbook/internal/core/task"
)

// TaskEntity is the collection name tasks are stored under.
const TaskEntity = "tasks"

// TaskRepository stores tasks and runs queries over them. Lookups that find
// nothing report found=false rather than an error. Mutations are persisted
// before returning; a persistence failure leaves the change applied in
// memory and returns an error wrapping entity.ErrNotPersisted.
type TaskRepository struct {
	store *entity.Store[task.Task]
	bus   *eventbus.EventBus
	now   func() time.Time
	log   zerolog.Logger
}

// NewTaskRepository hydrates the task collection from gw.
func NewTaskRepository(ctx context.Context, gw *gateway.Gateway, bus *eventbus.EventBus, now func() time.Time, log zerolog.Logger) *TaskRepository {
	log = logging.With(log, "task-repository")
	return &TaskRepository{
		store: entity.New[task.Task](ctx, gw, TaskEntity, task.Codec{}, log),
		bus:   bus,
		now:   now,
		log:   log,
	}
}

// Create validates and stores a new task.
func (r *TaskRepository) Create(ctx context.Context, p task.CreateParams) (task.Task, error) {
	t, err := task.New(p, task.NewID(), r.now())
	if err != nil {
		return task.Task{}, fmt.Errorf("create task: %w", err)
	}

	err = r.store.Put(ctx, t)
	r.bus.PublishTaskCreated(eventbus.TaskCreatedPayload{Task: t})
	r.log.Debug().Ctx(ctx).Str("task_id", t.ID).Str("owner_id", t.OwnerID).Msg("task created")
	if err != nil {
		return t, fmt.Errorf("create task %s: %w", t.ID, err)
	}
	return t, nil
}

func (r *TaskRepository) FindByID(id string) (task.Task, bool) {
	return r.store.FindByID(id)
}

// FindAll returns every task in insertion order.
func (r *TaskRepository) FindAll() []task.Task {
	return r.store.FindAll()
}

// Len returns the number of stored tasks.
func (r *TaskRepository) Len() int {
	return r.store.Len()
}

// Skipped returns how many stored tasks were dropped as corrupt on load.
func (r *TaskRepository) Skipped() int {
	return r.store.Skipped()
}

// Update applies patch to the task with the given id. A validation error
// aborts the whole patch and leaves the stored task unchanged.
func (r *TaskRepository) Update(ctx context.Context, id string, patch task.Patch) (task.Task, bool, error) {
	return r.mutate(ctx, id, func(t *task.Task, now time.Time) error {
		return patch.Apply(t, now)
	})
}

// Delete removes a task and drops it from the dependencies of other tasks.
// The removal and the unlinked dependents are persisted in one write.
func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	if !r.store.Has(id) {
		return false, nil
	}

	now := r.now()
	dependents := r.store.Filter(func(t task.Task) bool { return slices.Contains(t.Dependencies, id) })
	for i := range dependents {
		dependents[i].RemoveDependency(id, now)
	}

	deleted, err := r.store.Remove(ctx, id, dependents...)
	if !deleted {
		return false, err
	}
	r.bus.PublishTaskDeleted(eventbus.TaskDeletedPayload{TaskID: id})
	r.log.Debug().Ctx(ctx).Str("task_id", id).Int("unlinked", len(dependents)).Msg("task deleted")
	if err != nil {
		return true, fmt.Errorf("delete task %s: %w", id, err)
	}
	return true, nil
}

// AddNote appends a note to a task.
func (r *TaskRepository) AddNote(ctx context.Context, id, content, author string) (task.Note, bool, error) {
	var note task.Note
	_, found, err := r.mutate(ctx, id, func(t *task.Task, now time.Time) error {
		n, err := t.AddNote(content, author, now)
		note = n
		return err
	})
	return note, found, err
}

// LogTime adds hours to the time spent on a task. Zero is a no-op and
// negative hours are rejected.
func (r *TaskRepository) LogTime(ctx context.Context, id string, hours float64) (task.Task, bool, error) {
	if hours < 0 {
		return task.Task{}, r.store.Has(id), fmt.Errorf("log time on task %s: %w", id, task.ErrNegativeHours)
	}
	return r.mutate(ctx, id, func(t *task.Task, now time.Time) error {
		t.AddTimeSpent(hours, now)
		return nil
	})
}

// AddDependency makes task id depend on dependsOn, which must exist.
func (r *TaskRepository) AddDependency(ctx context.Context, id, dependsOn string) (task.Task, bool, error) {
	return r.mutate(ctx, id, func(t *task.Task, now time.Time) error {
		if dependsOn != t.ID && !r.store.Has(dependsOn) {
			return fmt.Errorf("%w: %s", task.ErrUnknownDependency, dependsOn)
		}
		return t.AddDependency(dependsOn, now)
	})
}

// RemoveDependency drops dependsOn from the dependencies of task id.
func (r *TaskRepository) RemoveDependency(ctx context.Context, id, dependsOn string) (task.Task, bool, error) {
	return r.mutate(ctx, id, func(t *task.Task, now time.Time) error {
		t.RemoveDependency(dependsOn, now)
		return nil
	})
}

// mutate runs fn on a copy of the task and stores the copy only when fn
// succeeds.
func (r *TaskRepository) mutate(ctx context.Context, id string, fn func(*task.Task, time.Time) error) (task.Task, bool, error) {
	prev, ok := r.store.FindByID(id)
	if !ok {
		return task.Task{}, false, nil
	}

	next := prev.Clone()
	if err := fn(&next, r.now()); err != nil {
		return task.Task{}, true, fmt.Errorf("update task %s: %w", id, err)
	}

	err := r.store.Put(ctx, next)
	r.bus.PublishTaskUpdated(eventbus.TaskUpdatedPayload{Task: next, Previous: prev})
	if err != nil {
		return next, true, fmt.Errorf("update task %s: %w", id, err)
	}
	return next, true, nil
}

// Filter returns the tasks matching c in insertion order.
func (r *TaskRepository) Filter(c task.Criteria) []task.Task {
	return task.Filter(r.store.FindAll(), c, r.now())
}

// Sort returns a sorted copy of tasks.
func (r *TaskRepository) Sort(tasks []task.Task, field task.SortField, order task.SortOrder) []task.Task {
	return task.Sort(tasks, field, order)
}

// Search returns tasks whose title, description or tags contain query.
func (r *TaskRepository) Search(query string) []task.Task {
	return task.Search(r.store.FindAll(), query)
}

// Stats aggregates all tasks, or only those owned by ownerID when it is set.
func (r *TaskRepository) Stats(ownerID string) task.Stats {
	return task.ComputeStats(r.Filter(task.Criteria{OwnerID: ownerID}), r.now())
}

// Snapshot returns the encoded collection as it would be persisted.
func (r *TaskRepository) Snapshot() ([]json.RawMessage, error) {
	return r.store.Snapshot()
}
