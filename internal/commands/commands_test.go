package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskbook/internal/core/config"
	"github.com/colonyops/taskbook/internal/core/eventbus"
	"github.com/colonyops/taskbook/internal/core/gateway"
	"github.com/colonyops/taskbook/internal/core/task"
	"github.com/colonyops/taskbook/internal/core/user"
	"github.com/colonyops/taskbook/internal/data/stores"
	"github.com/colonyops/taskbook/internal/taskbook"
)

var now = time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)

type harness struct {
	app *taskbook.App
	cfg *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return now }

	gw := gateway.New(ctx, stores.NewMemoryStore(), gateway.Options{Now: clock}, zerolog.Nop())
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	return &harness{
		app: taskbook.NewApp(ctx, gw, eventbus.New(), clock, zerolog.Nop()),
		cfg: &cfg,
	}
}

// run builds a fresh command tree so flag destinations never leak between
// invocations. Output goes to a buffer, which selects JSON mode.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	flags := &Flags{Config: h.cfg}

	root := &cli.Command{
		Name:      "taskbook",
		Writer:    &out,
		ErrWriter: &errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Destination: &flags.User},
			&cli.StringFlag{Name: "output", Value: OutputAuto, Destination: &flags.Output},
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	root = NewUserCmd(flags, h.app).Register(root)
	root = NewTaskCmd(flags, h.app).Register(root)
	root = NewExportCmd(flags, h.app).Register(root)
	root = NewConfigCmd(flags).Register(root)

	err := root.Run(context.Background(), append([]string{"taskbook"}, args...))
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, "taskbook %s", strings.Join(args, " "))
	return out
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func decodeLines[T any](t *testing.T, s string) []T {
	t.Helper()
	var out []T
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line == "" {
			continue
		}
		out = append(out, decode[T](t, line))
	}
	return out
}

func (h *harness) register(t *testing.T, username string) user.User {
	t.Helper()
	out := h.mustRun(t, "user", "register", "--username", username, "--email", username+"@example.com")
	return decode[user.User](t, out)
}

func (h *harness) createTask(t *testing.T, username string, args ...string) task.Task {
	t.Helper()
	out := h.mustRun(t, append([]string{"--user", username, "task", "create"}, args...)...)
	return decode[task.Task](t, out)
}

func TestUserRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	u := h.register(t, "alice")
	assert.Equal(t, "alice", u.Username)
	assert.Nil(t, u.LastLoginAt)

	out := h.mustRun(t, "user", "login", "ALICE")
	logged := decode[user.User](t, out)
	require.NotNil(t, logged.LastLoginAt)
	assert.True(t, now.Equal(*logged.LastLoginAt))

	_, err := h.run(t, "user", "register", "--username", "Alice", "--email", "other@example.com")
	assert.ErrorIs(t, err, user.ErrDuplicateUsername)

	_, err = h.run(t, "user", "login", "nobody")
	assert.ErrorIs(t, err, taskbook.ErrUserNotFound)
}

func TestUserDeactivateBlocksLogin(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.register(t, "bob")

	h.mustRun(t, "user", "deactivate", "bob")

	_, err := h.run(t, "user", "login", "bob")
	assert.ErrorIs(t, err, taskbook.ErrUserInactive)

	active := decodeLines[user.User](t, h.mustRun(t, "user", "list", "--active"))
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Username)

	h.mustRun(t, "user", "activate", "bob")
	h.mustRun(t, "user", "login", "bob")
}

func TestUserRole_FirstAdminThenAdminOnly(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.register(t, "bob")

	u := decode[user.User](t, h.mustRun(t, "--user", "alice", "user", "role", "alice", "admin"))
	assert.Equal(t, user.RoleAdmin, u.Role)

	_, err := h.run(t, "--user", "bob", "user", "role", "bob", "admin")
	assert.ErrorIs(t, err, taskbook.ErrForbidden)

	u = decode[user.User](t, h.mustRun(t, "--user", "alice", "user", "role", "bob", "admin"))
	assert.Equal(t, user.RoleAdmin, u.Role)
}

func TestUserProfile(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.register(t, "bob")

	u := decode[user.User](t, h.mustRun(t, "--user", "alice", "user", "profile", "--full-name", "Alice Liddell"))
	assert.Equal(t, "Alice Liddell", u.FullName)
	assert.Equal(t, "alice@example.com", u.Email)

	_, err := h.run(t, "--user", "alice", "user", "profile", "--email", "BOB@example.com")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestTaskCommands_RequireUser(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "task", "list")
	assert.ErrorContains(t, err, "no acting user")

	_, err = h.run(t, "--user", "ghost", "task", "list")
	assert.ErrorIs(t, err, taskbook.ErrUserNotFound)
}

func TestTaskCreateAndList(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.register(t, "bob")

	created := h.createTask(t, "alice",
		"--title", "  Buy groceries ",
		"--priority", "high",
		"--tag", "Shopping", "--tag", "shopping",
		"--due", "2026-05-12",
		"--estimate", "2",
	)
	assert.Equal(t, "Buy groceries", created.Title)
	assert.Equal(t, task.PriorityHigh, created.Priority)
	assert.Equal(t, []string{"shopping"}, created.Tags)
	require.NotNil(t, created.DueDate)

	h.createTask(t, "alice", "--title", "Write report", "--priority", "low")
	h.createTask(t, "bob", "--title", "Not for alice")

	all := decodeLines[task.Task](t, h.mustRun(t, "--user", "alice", "task", "list", "--sort", "title", "--order", "asc"))
	require.Len(t, all, 2)
	assert.Equal(t, "Buy groceries", all[0].Title)
	assert.Equal(t, "Write report", all[1].Title)

	high := decodeLines[task.Task](t, h.mustRun(t, "--user", "alice", "task", "list", "--priority", "high"))
	require.Len(t, high, 1)
	assert.Equal(t, created.ID, high[0].ID)

	tagged := decodeLines[task.Task](t, h.mustRun(t, "--user", "alice", "task", "list", "--tag", "SHOPPING"))
	assert.Len(t, tagged, 1)
}

func TestTaskCreate_Validation(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")

	_, err := h.run(t, "--user", "alice", "task", "create", "--title", "   ")
	assert.ErrorIs(t, err, task.ErrEmptyTitle)

	_, err = h.run(t, "--user", "alice", "task", "create", "--title", "x", "--due", "next week")
	assert.ErrorContains(t, err, "invalid due date")

	_, err = h.run(t, "--user", "alice", "task", "create", "--title", "x", "--assignee", "ghost")
	assert.ErrorIs(t, err, taskbook.ErrUserNotFound)

	assert.Empty(t, decodeLines[task.Task](t, h.mustRun(t, "--user", "alice", "task", "list")))
}

func TestTaskList_RejectsUnknownFilter(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.createTask(t, "alice", "--title", "Pending work")

	for _, args := range [][]string{
		{"--status", "bogus"},
		{"--priority", "HIGH"},
		{"--category", "chores"},
	} {
		_, err := h.run(t, append([]string{"--user", "alice", "task", "list"}, args...)...)
		assert.ErrorContains(t, err, "unknown "+strings.TrimPrefix(args[0], "--"), "%v", args)
	}

	assert.Empty(t, decodeLines[task.Task](t, h.mustRun(t, "--user", "alice", "task", "list", "--status", "completed")))
	assert.Len(t, decodeLines[task.Task](t, h.mustRun(t, "--user", "alice", "task", "list", "--status", "pending")), 1)
}

func TestTaskUpdateAndToggle(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	created := h.createTask(t, "alice", "--title", "Draft", "--due", "2026-05-01")

	_, err := h.run(t, "--user", "alice", "task", "update", created.ID)
	assert.ErrorContains(t, err, "nothing to update")

	updated := decode[task.Task](t, h.mustRun(t, "--user", "alice", "task", "update",
		"--title", "Final", "--status", "completed", "--clear-due", created.ID))
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, task.StatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	assert.Nil(t, updated.DueDate)

	toggled := decode[task.Task](t, h.mustRun(t, "--user", "alice", "task", "toggle", created.ID))
	assert.Equal(t, task.StatusPending, toggled.Status)
	assert.Nil(t, toggled.CompletedAt)
}

func TestTaskAccessRules(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.register(t, "bob")
	h.register(t, "carol")

	shared := h.createTask(t, "alice", "--title", "Shared", "--assignee", "bob")

	shown := decode[task.Task](t, h.mustRun(t, "--user", "bob", "task", "show", shared.ID))
	assert.Equal(t, shared.ID, shown.ID)

	h.mustRun(t, "--user", "bob", "task", "update", "--status", "in-progress", shared.ID)

	_, err := h.run(t, "--user", "carol", "task", "show", shared.ID)
	assert.ErrorIs(t, err, taskbook.ErrForbidden)

	_, err = h.run(t, "--user", "bob", "task", "delete", shared.ID)
	assert.ErrorIs(t, err, taskbook.ErrForbidden)

	h.mustRun(t, "--user", "alice", "task", "delete", shared.ID)

	_, err = h.run(t, "--user", "alice", "task", "show", shared.ID)
	assert.ErrorIs(t, err, taskbook.ErrTaskNotFound)
}

func TestTaskSearch(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.createTask(t, "alice", "--title", "Buy groceries", "--description", "milk and eggs")
	h.createTask(t, "alice", "--title", "Gym", "--tag", "health")

	found := decodeLines[task.Task](t, h.mustRun(t, "--user", "alice", "task", "search", "MILK"))
	require.Len(t, found, 1)
	assert.Equal(t, "Buy groceries", found[0].Title)

	found = decodeLines[task.Task](t, h.mustRun(t, "--user", "alice", "task", "search", "health"))
	require.Len(t, found, 1)
	assert.Equal(t, "Gym", found[0].Title)

	_, err := h.run(t, "--user", "alice", "task", "search", "  ")
	assert.ErrorIs(t, err, taskbook.ErrEmptyQuery)
}

func TestTaskNotesTimeAndDependencies(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	first := h.createTask(t, "alice", "--title", "First", "--estimate", "4")
	second := h.createTask(t, "alice", "--title", "Second")

	note := decode[task.Note](t, h.mustRun(t, "--user", "alice", "task", "note", first.ID, "picked", "up", "supplies"))
	assert.Equal(t, "picked up supplies", note.Content)
	assert.Equal(t, "alice", note.Author)

	logged := decode[task.Task](t, h.mustRun(t, "--user", "alice", "task", "log", first.ID, "1.5"))
	assert.InDelta(t, 1.5, logged.ActualHours, 1e-9)

	_, err := h.run(t, "--user", "alice", "task", "log", first.ID, "abc")
	assert.ErrorContains(t, err, "invalid hours")

	dep := decode[task.Task](t, h.mustRun(t, "--user", "alice", "task", "depend", second.ID, first.ID))
	assert.Equal(t, []string{first.ID}, dep.Dependencies)

	_, err = h.run(t, "--user", "alice", "task", "depend", second.ID, second.ID)
	assert.ErrorIs(t, err, task.ErrSelfDependency)

	dep = decode[task.Task](t, h.mustRun(t, "--user", "alice", "task", "depend", "--remove", second.ID, first.ID))
	assert.Empty(t, dep.Dependencies)

	shown := decode[task.Task](t, h.mustRun(t, "--user", "alice", "task", "show", first.ID))
	require.Len(t, shown.Notes, 1)
}

func TestTaskStats(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	done := h.createTask(t, "alice", "--title", "Done", "--priority", "urgent")
	h.createTask(t, "alice", "--title", "Late", "--due", "2026-05-01T09:00:00Z")
	h.mustRun(t, "--user", "alice", "task", "toggle", done.ID)

	stats := decode[task.Stats](t, h.mustRun(t, "--user", "alice", "task", "stats"))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.ByPriority[task.PriorityUrgent])
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.createTask(t, "alice", "--title", "Exported")

	bundle := decode[gateway.Bundle](t, h.mustRun(t, "export"))
	assert.Equal(t, gateway.DefaultNamespace, bundle.AppName)
	assert.Contains(t, bundle.Data, h.app.Gateway.Key(taskbook.TaskEntity))
	assert.Contains(t, bundle.Data, h.app.Gateway.Key(taskbook.UserEntity))

	bundle = decode[gateway.Bundle](t, h.mustRun(t, "export", "--match", "*_tasks"))
	assert.Len(t, bundle.Data, 1)
	assert.Contains(t, bundle.Data, h.app.Gateway.Key(taskbook.TaskEntity))

	_, err := h.run(t, "export", "--match", "[")
	assert.ErrorContains(t, err, "invalid --match pattern")

	file := filepath.Join(t.TempDir(), "backup.json")
	out := h.mustRun(t, "export", "-o", file)
	assert.Empty(t, out)
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	written := decode[gateway.Bundle](t, string(raw))
	assert.Contains(t, written.Data, h.app.Gateway.Key(taskbook.TaskEntity))

	meta := decode[gateway.Metadata](t, h.mustRun(t, "export", "--meta"))
	assert.Contains(t, meta.Entities, taskbook.TaskEntity)
}

// closeFailer accepts writes but fails to close, like a file whose final
// flush hits a full disk.
type closeFailer struct{ bytes.Buffer }

func (*closeFailer) Close() error { return errors.New("disk full") }

func TestWriteAndClose_ReportsCloseError(t *testing.T) {
	var wc closeFailer
	err := writeAndClose(&wc, &bytes.Buffer{}, map[string]string{"a": "b"})
	require.ErrorContains(t, err, "disk full")
	assert.Contains(t, wc.String(), `"a"`)
}

func TestConfigValidate(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "config", "validate", "--format", "json")
	report := decode[map[string]any](t, out)
	assert.Equal(t, true, report["valid"])

	h.cfg.Namespace = "bad*namespace"
	out, err := h.run(t, "config", "validate", "--format", "json")
	require.Error(t, err)
	report = decode[map[string]any](t, out)
	assert.Equal(t, false, report["valid"])
	assert.Contains(t, out, `"namespace"`)

	out, err = h.run(t, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, out, "1 error(s) found")
}

func TestConfigShow_RedactsPassword(t *testing.T) {
	h := newHarness(t)
	h.cfg.Redis.Password = "hunter2"

	out := h.mustRun(t, "config", "show")
	assert.Contains(t, out, "backend: sqlite")
	assert.NotContains(t, out, "hunter2")
	assert.Equal(t, "hunter2", h.cfg.Redis.Password)
}

func TestParseDue(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-05-12", want: time.Date(2026, 5, 12, 0, 0, 0, 0, time.Local)},
		{in: "2026-05-12T09:30:00Z", want: time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)},
		{in: "12/05/2026", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDue(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
