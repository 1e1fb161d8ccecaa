// Package taskbook wires the task and user repositories to a gateway and
// exposes the operations the command line runs.
package taskbook

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskbook/internal/core/eventbus"
	"github.com/colonyops/taskbook/internal/core/gateway"
)

// App is the central entry point for all taskbook operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Tasks    *TaskRepository
	Users    *UserRepository
	Accounts *Accounts

	Gateway *gateway.Gateway
	Bus     *eventbus.EventBus
}

// NewApp hydrates both collections from gw. A nil now uses time.Now.
func NewApp(ctx context.Context, gw *gateway.Gateway, bus *eventbus.EventBus, now func() time.Time, log zerolog.Logger) *App {
	if now == nil {
		now = time.Now
	}

	tasks := NewTaskRepository(ctx, gw, bus, now, log)
	users := NewUserRepository(ctx, gw, bus, now, log)

	return &App{
		Tasks:    tasks,
		Users:    users,
		Accounts: NewAccounts(tasks, users, log),
		Gateway:  gw,
		Bus:      bus,
	}
}

// Export bundles the stored collections, optionally filtered by glob.
func (a *App) Export(ctx context.Context, patterns ...string) (gateway.Bundle, bool) {
	return a.Gateway.Export(ctx, patterns...)
}
