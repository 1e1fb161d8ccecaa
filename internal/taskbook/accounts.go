package taskbook

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskbook/internal/core/logging"
	"github.com/colonyops/taskbook/internal/core/task"
	"github.com/colonyops/taskbook/internal/core/user"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user is deactivated")
	ErrTaskNotFound = errors.New("task not found")
	ErrForbidden    = errors.New("not allowed for this user")
	ErrEmptyQuery   = errors.New("search query is required")
)

// Accounts runs task operations on behalf of a signed-in user. Owners and
// assignees may read and update a task; only the owner may delete it.
type Accounts struct {
	tasks *TaskRepository
	users *UserRepository
	log   zerolog.Logger
}

func NewAccounts(tasks *TaskRepository, users *UserRepository, log zerolog.Logger) *Accounts {
	return &Accounts{tasks: tasks, users: users, log: logging.With(log, "accounts")}
}

// Register creates a new user account.
func (a *Accounts) Register(ctx context.Context, p user.CreateParams) (user.User, error) {
	return a.users.Create(ctx, p)
}

// Resolve looks up an active user by username.
func (a *Accounts) Resolve(username string) (user.User, error) {
	u, ok := a.users.FindByUsername(username)
	if !ok {
		return user.User{}, fmt.Errorf("%q: %w", username, ErrUserNotFound)
	}
	if !u.IsActive {
		return user.User{}, fmt.Errorf("%q: %w", username, ErrUserInactive)
	}
	return u, nil
}

// Login resolves the user and records the login time.
func (a *Accounts) Login(ctx context.Context, username string) (user.User, error) {
	u, err := a.Resolve(username)
	if err != nil {
		return user.User{}, fmt.Errorf("login: %w", err)
	}

	updated, _, err := a.users.RecordLogin(ctx, u.ID)
	if err != nil {
		return updated, fmt.Errorf("login: %w", err)
	}
	a.log.Info().Ctx(logging.WithActorID(ctx, u.ID)).Str("user_id", u.ID).Str("username", u.Username).Msg("user logged in")
	return updated, nil
}

// CreateTask creates a task owned by actor. An empty category falls back to
// the actor's preferred default and an assignee, when given, must exist.
func (a *Accounts) CreateTask(ctx context.Context, actor user.User, p task.CreateParams) (task.Task, error) {
	ctx = logging.WithActorID(ctx, actor.ID)
	p.OwnerID = actor.ID
	if strings.TrimSpace(p.Category) == "" {
		p.Category = string(actor.Preferences.DefaultCategory)
	}
	if id := strings.TrimSpace(p.AssigneeID); id != "" {
		if _, ok := a.users.FindByID(id); !ok {
			return task.Task{}, fmt.Errorf("assignee %s: %w", id, ErrUserNotFound)
		}
	}
	return a.tasks.Create(ctx, p)
}

// Task returns a task the actor owns or is assigned.
func (a *Accounts) Task(actor user.User, id string) (task.Task, error) {
	t, ok := a.tasks.FindByID(id)
	if !ok {
		return task.Task{}, fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	if !canAccess(actor, t) {
		return task.Task{}, fmt.Errorf("%s: %w", id, ErrForbidden)
	}
	return t, nil
}

// UpdateTask applies patch to a task the actor owns or is assigned.
func (a *Accounts) UpdateTask(ctx context.Context, actor user.User, id string, patch task.Patch) (task.Task, error) {
	if _, err := a.Task(actor, id); err != nil {
		return task.Task{}, err
	}
	if patch.AssigneeID != nil {
		if aid := strings.TrimSpace(*patch.AssigneeID); aid != "" {
			if _, ok := a.users.FindByID(aid); !ok {
				return task.Task{}, fmt.Errorf("assignee %s: %w", aid, ErrUserNotFound)
			}
		}
	}
	t, _, err := a.tasks.Update(ctx, id, patch)
	return t, err
}

// ToggleTask flips a task between completed and pending.
func (a *Accounts) ToggleTask(ctx context.Context, actor user.User, id string) (task.Task, error) {
	t, err := a.Task(actor, id)
	if err != nil {
		return task.Task{}, err
	}

	next := string(task.StatusCompleted)
	if t.IsCompleted() {
		next = string(task.StatusPending)
	}
	updated, _, err := a.tasks.Update(ctx, id, task.Patch{Status: &next})
	return updated, err
}

// DeleteTask removes a task. Only its owner may delete it.
func (a *Accounts) DeleteTask(ctx context.Context, actor user.User, id string) error {
	t, ok := a.tasks.FindByID(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	if t.OwnerID != actor.ID {
		return fmt.Errorf("delete %s: %w", id, ErrForbidden)
	}
	_, err := a.tasks.Delete(ctx, id)
	return err
}

// AddNote appends a note authored by actor.
func (a *Accounts) AddNote(ctx context.Context, actor user.User, id, content string) (task.Note, error) {
	if _, err := a.Task(actor, id); err != nil {
		return task.Note{}, err
	}
	note, _, err := a.tasks.AddNote(ctx, id, content, actor.Username)
	return note, err
}

// LogTime records hours spent on a task.
func (a *Accounts) LogTime(ctx context.Context, actor user.User, id string, hours float64) (task.Task, error) {
	if _, err := a.Task(actor, id); err != nil {
		return task.Task{}, err
	}
	t, _, err := a.tasks.LogTime(ctx, id, hours)
	return t, err
}

// AddDependency makes one of the actor's tasks depend on another task.
func (a *Accounts) AddDependency(ctx context.Context, actor user.User, id, dependsOn string) (task.Task, error) {
	if _, err := a.Task(actor, id); err != nil {
		return task.Task{}, err
	}
	t, _, err := a.tasks.AddDependency(ctx, id, dependsOn)
	return t, err
}

// RemoveDependency drops a dependency from one of the actor's tasks.
func (a *Accounts) RemoveDependency(ctx context.Context, actor user.User, id, dependsOn string) (task.Task, error) {
	if _, err := a.Task(actor, id); err != nil {
		return task.Task{}, err
	}
	t, _, err := a.tasks.RemoveDependency(ctx, id, dependsOn)
	return t, err
}

// ListTasks returns the actor's own tasks matching c, sorted.
func (a *Accounts) ListTasks(actor user.User, c task.Criteria, field task.SortField, order task.SortOrder) []task.Task {
	c.OwnerID = actor.ID
	return a.tasks.Sort(a.tasks.Filter(c), field, order)
}

// SearchTasks searches the tasks the actor owns or is assigned.
func (a *Accounts) SearchTasks(actor user.User, query string) ([]task.Task, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	var out []task.Task
	for _, t := range a.tasks.Search(strings.TrimSpace(query)) {
		if canAccess(actor, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// TaskStats aggregates the actor's own tasks.
func (a *Accounts) TaskStats(actor user.User) task.Stats {
	return a.tasks.Stats(actor.ID)
}

// DueSoon returns the actor's open tasks due within the next few days.
func (a *Accounts) DueSoon(actor user.User) []task.Task {
	due := a.ListTasks(actor, task.Criteria{DueSoon: true}, task.SortByDueDate, task.Asc)
	return slices.DeleteFunc(due, task.Task.IsCompleted)
}

// Overdue returns the actor's open tasks past their due date.
func (a *Accounts) Overdue(actor user.User) []task.Task {
	return a.ListTasks(actor, task.Criteria{Overdue: true}, task.SortByDueDate, task.Asc)
}

func canAccess(u user.User, t task.Task) bool {
	return t.OwnerID == u.ID || t.AssigneeID == u.ID
}
