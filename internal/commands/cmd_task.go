package commands

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskbook/internal/core/task"
	"github.com/colonyops/taskbook/internal/taskbook"
)

// TaskCmd implements the taskbook task command group. Every subcommand acts
// on behalf of the user named by --user.
type TaskCmd struct {
	flags *Flags
	app   *taskbook.App
	now   func() time.Time

	// create / update flags
	title       string
	description string
	category    string
	priority    string
	status      string
	tags        []string
	due         string
	clearDue    bool
	assignee    string
	estimate    float64

	// list flags
	tag     string
	overdue bool
	dueSoon bool
	sortBy  string
	order   string

	// depend flags
	remove bool
}

// NewTaskCmd creates a new task command.
func NewTaskCmd(flags *Flags, app *taskbook.App) *TaskCmd {
	return &TaskCmd{flags: flags, app: app, now: time.Now}
}

// Register adds the task command to the application.
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "task",
		Usage: "Manage tasks",
		Description: `Task commands create, update, query and complete tasks owned by or
assigned to the acting user.

Examples:
  taskbook --user alice task create --title "Buy groceries" --priority high --tag shopping
  taskbook --user alice task list --priority high --sort dueDate --order asc
  taskbook --user alice task toggle <id>`,
		Commands: []*cli.Command{
			cmd.createCmd(),
			cmd.updateCmd(),
			cmd.deleteCmd(),
			cmd.showCmd(),
			cmd.listCmd(),
			cmd.searchCmd(),
			cmd.statsCmd(),
			cmd.noteCmd(),
			cmd.logCmd(),
			cmd.dependCmd(),
			cmd.toggleCmd(),
		},
	})

	return app
}

func (cmd *TaskCmd) fieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "task description", Destination: &cmd.description},
		&cli.StringFlag{Name: "category", Usage: "work, personal, study, health, finance, other", Destination: &cmd.category},
		&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "low, medium, high, urgent", Destination: &cmd.priority},
		&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "pending, in-progress, blocked, completed, cancelled", Destination: &cmd.status},
		&cli.StringSliceFlag{Name: "tag", Usage: "tag (repeatable)", Destination: &cmd.tags},
		&cli.StringFlag{Name: "due", Usage: "due date (YYYY-MM-DD or RFC 3339)", Destination: &cmd.due},
		&cli.StringFlag{Name: "assignee", Aliases: []string{"a"}, Usage: "username to assign the task to", Destination: &cmd.assignee},
		&cli.FloatFlag{Name: "estimate", Aliases: []string{"e"}, Usage: "estimated hours", Destination: &cmd.estimate},
	}
}

func (cmd *TaskCmd) createCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Aliases:   []string{"add"},
		Usage:     "Create a task",
		UsageText: "taskbook task create --title <title> [options]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "task title", Required: true, Destination: &cmd.title},
		}, cmd.fieldFlags()...),
		Action: cmd.runCreate,
	}
}

func (cmd *TaskCmd) updateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Aliases:   []string{"edit"},
		Usage:     "Update fields of a task",
		UsageText: "taskbook task update <id> [options]",
		Description: `Only the flags that are given are changed. --tag replaces the whole tag
list and --clear-due removes the due date.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "task title", Destination: &cmd.title},
			&cli.BoolFlag{Name: "clear-due", Usage: "remove the due date", Destination: &cmd.clearDue},
		}, cmd.fieldFlags()...),
		Action: cmd.runUpdate,
	}
}

func (cmd *TaskCmd) deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a task (owner only)",
		UsageText: "taskbook task delete <id>",
		Action:    cmd.runDelete,
	}
}

func (cmd *TaskCmd) showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a task with its notes",
		UsageText: "taskbook task show <id>",
		Action:    cmd.runShow,
	}
}

func (cmd *TaskCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List the acting user's tasks",
		UsageText: "taskbook task list [filters] [--sort <field>] [--order asc|desc]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "filter by status", Destination: &cmd.status},
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "filter by priority", Destination: &cmd.priority},
			&cli.StringFlag{Name: "category", Usage: "filter by category", Destination: &cmd.category},
			&cli.StringFlag{Name: "tag", Usage: "filter by tag", Destination: &cmd.tag},
			&cli.BoolFlag{Name: "overdue", Usage: "only overdue tasks", Destination: &cmd.overdue},
			&cli.BoolFlag{Name: "due-soon", Usage: "only tasks due within three days", Destination: &cmd.dueSoon},
			&cli.StringFlag{Name: "sort", Usage: "title, priority, dueDate, createdAt", Value: string(task.SortByCreatedAt), Destination: &cmd.sortBy},
			&cli.StringFlag{Name: "order", Usage: "asc or desc", Value: string(task.Desc), Destination: &cmd.order},
		},
		Action: cmd.runList,
	}
}

func (cmd *TaskCmd) searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search titles, descriptions and tags",
		UsageText: "taskbook task search <query>",
		Action:    cmd.runSearch,
	}
}

func (cmd *TaskCmd) statsCmd() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Summarize the acting user's tasks",
		UsageText: "taskbook task stats",
		Action:    cmd.runStats,
	}
}

func (cmd *TaskCmd) noteCmd() *cli.Command {
	return &cli.Command{
		Name:      "note",
		Usage:     "Add a note to a task",
		UsageText: "taskbook task note <id> <text...>",
		Action:    cmd.runNote,
	}
}

func (cmd *TaskCmd) logCmd() *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Log hours spent on a task",
		UsageText: "taskbook task log <id> <hours>",
		Action:    cmd.runLog,
	}
}

func (cmd *TaskCmd) dependCmd() *cli.Command {
	return &cli.Command{
		Name:      "depend",
		Usage:     "Add or remove a dependency between tasks",
		UsageText: "taskbook task depend <id> <depends-on-id> [--remove]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remove", Usage: "remove the dependency instead", Destination: &cmd.remove},
		},
		Action: cmd.runDepend,
	}
}

func (cmd *TaskCmd) toggleCmd() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Aliases:   []string{"done"},
		Usage:     "Toggle a task between completed and pending",
		UsageText: "taskbook task toggle <id>",
		Action:    cmd.runToggle,
	}
}

func (cmd *TaskCmd) runCreate(ctx context.Context, c *cli.Command) error {
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	params := task.CreateParams{
		Title:          cmd.title,
		Description:    cmd.description,
		Category:       cmd.category,
		Tags:           cmd.tags,
		Priority:       cmd.priority,
		Status:         cmd.status,
		EstimatedHours: cmd.estimate,
	}
	if cmd.due != "" {
		due, err := parseDue(cmd.due)
		if err != nil {
			return err
		}
		params.DueDate = &due
	}
	if cmd.assignee != "" {
		params.AssigneeID, err = cmd.userID(cmd.assignee)
		if err != nil {
			return err
		}
	}

	t, err := cmd.app.Accounts.CreateTask(ctx, actor, params)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return newPrinter(cmd.flags, c).message("created "+t.ID, t)
}

func (cmd *TaskCmd) runUpdate(ctx context.Context, c *cli.Command) error {
	id, err := arg(c, 0, "taskbook task update <id> [options]")
	if err != nil {
		return err
	}
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	var patch task.Patch
	if c.IsSet("title") {
		patch.Title = &cmd.title
	}
	if c.IsSet("description") {
		patch.Description = &cmd.description
	}
	if c.IsSet("category") {
		patch.Category = &cmd.category
	}
	if c.IsSet("priority") {
		patch.Priority = &cmd.priority
	}
	if c.IsSet("status") {
		patch.Status = &cmd.status
	}
	if c.IsSet("tag") {
		patch.Tags = &cmd.tags
	}
	if c.IsSet("estimate") {
		patch.EstimatedHours = &cmd.estimate
	}
	if c.IsSet("due") {
		due, err := parseDue(cmd.due)
		if err != nil {
			return err
		}
		patch.DueDate = &due
	}
	patch.ClearDueDate = cmd.clearDue
	if c.IsSet("assignee") {
		assigneeID, err := cmd.userID(cmd.assignee)
		if err != nil {
			return err
		}
		patch.AssigneeID = &assigneeID
	}

	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update: pass at least one field flag")
	}

	t, err := cmd.app.Accounts.UpdateTask(ctx, actor, id, patch)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	return newPrinter(cmd.flags, c).record(t, func() string { return taskDetail(t, cmd.now()) })
}

func (cmd *TaskCmd) runDelete(ctx context.Context, c *cli.Command) error {
	id, err := arg(c, 0, "taskbook task delete <id>")
	if err != nil {
		return err
	}
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	if err := cmd.app.Accounts.DeleteTask(ctx, actor, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	return newPrinter(cmd.flags, c).message("deleted "+id, map[string]string{"deleted": id})
}

func (cmd *TaskCmd) runShow(_ context.Context, c *cli.Command) error {
	id, err := arg(c, 0, "taskbook task show <id>")
	if err != nil {
		return err
	}
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	t, err := cmd.app.Accounts.Task(actor, id)
	if err != nil {
		return err
	}

	return newPrinter(cmd.flags, c).record(t, func() string { return taskDetail(t, cmd.now()) })
}

func (cmd *TaskCmd) runList(_ context.Context, c *cli.Command) error {
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	criteria := task.Criteria{
		Tag:     cmd.tag,
		Overdue: cmd.overdue,
		DueSoon: cmd.dueSoon,
	}
	if criteria.Status, err = filterValue("status", cmd.status, task.Statuses); err != nil {
		return err
	}
	if criteria.Priority, err = filterValue("priority", cmd.priority, task.Priorities); err != nil {
		return err
	}
	if criteria.Category, err = filterValue("category", cmd.category, task.Categories); err != nil {
		return err
	}

	tasks := cmd.app.Accounts.ListTasks(actor, criteria, task.ParseSortField(cmd.sortBy), task.ParseSortOrder(cmd.order))
	return emitList(newPrinter(cmd.flags, c), tasks, taskHeaders, taskRow, taskStyle(cmd.now()))
}

// filterValue matches a list filter exactly against the known values. An
// empty raw value means no filter.
func filterValue[T ~string](name, raw string, known []T) (T, error) {
	if raw == "" {
		return "", nil
	}
	v := T(raw)
	if !slices.Contains(known, v) {
		return "", fmt.Errorf("unknown %s %q", name, raw)
	}
	return v, nil
}

func (cmd *TaskCmd) runSearch(_ context.Context, c *cli.Command) error {
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	tasks, err := cmd.app.Accounts.SearchTasks(actor, strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}

	return emitList(newPrinter(cmd.flags, c), tasks, taskHeaders, taskRow, taskStyle(cmd.now()))
}

func (cmd *TaskCmd) runStats(_ context.Context, c *cli.Command) error {
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	stats := cmd.app.Accounts.TaskStats(actor)
	return newPrinter(cmd.flags, c).record(stats, func() string { return statsDetail(stats) })
}

func (cmd *TaskCmd) runNote(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskbook task note <id> <text...>")
	}
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	id := c.Args().Get(0)
	note, err := cmd.app.Accounts.AddNote(ctx, actor, id, strings.Join(c.Args().Slice()[1:], " "))
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}

	return newPrinter(cmd.flags, c).message("noted "+note.ID, note)
}

func (cmd *TaskCmd) runLog(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskbook task log <id> <hours>")
	}
	hours, err := strconv.ParseFloat(c.Args().Get(1), 64)
	if err != nil {
		return fmt.Errorf("invalid hours %q: %w", c.Args().Get(1), err)
	}
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	t, err := cmd.app.Accounts.LogTime(ctx, actor, c.Args().Get(0), hours)
	if err != nil {
		return fmt.Errorf("log time: %w", err)
	}

	msg := fmt.Sprintf("logged %s on %s (%.0f%% of estimate)", formatHours(hours), t.ID, t.Progress())
	return newPrinter(cmd.flags, c).message(msg, t)
}

func (cmd *TaskCmd) runDepend(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskbook task depend <id> <depends-on-id> [--remove]")
	}
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	id, dep := c.Args().Get(0), c.Args().Get(1)
	update, verb := cmd.app.Accounts.AddDependency, " now depends on "
	if cmd.remove {
		update, verb = cmd.app.Accounts.RemoveDependency, " no longer depends on "
	}

	t, err := update(ctx, actor, id, dep)
	if err != nil {
		return fmt.Errorf("depend: %w", err)
	}

	return newPrinter(cmd.flags, c).message(id+verb+dep, t)
}

func (cmd *TaskCmd) runToggle(ctx context.Context, c *cli.Command) error {
	id, err := arg(c, 0, "taskbook task toggle <id>")
	if err != nil {
		return err
	}
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	t, err := cmd.app.Accounts.ToggleTask(ctx, actor, id)
	if err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}

	return newPrinter(cmd.flags, c).message(t.ID+" is now "+string(t.Status), t)
}

// userID maps a username to its id.
func (cmd *TaskCmd) userID(username string) (string, error) {
	u, ok := cmd.app.Users.FindByUsername(username)
	if !ok {
		return "", fmt.Errorf("assignee %q: %w", username, taskbook.ErrUserNotFound)
	}
	return u.ID, nil
}

func arg(c *cli.Command, i int, usage string) (string, error) {
	if c.NArg() <= i {
		return "", fmt.Errorf("usage: %s", usage)
	}
	return c.Args().Get(i), nil
}

// parseDue accepts a calendar date in local time or a full RFC 3339 timestamp.
func parseDue(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
