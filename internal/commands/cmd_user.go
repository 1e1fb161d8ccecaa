package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskbook/internal/core/user"
	"github.com/colonyops/taskbook/internal/taskbook"
	"github.com/colonyops/taskbook/pkg/iojson"
)

// UserCmd implements the taskbook user command group.
type UserCmd struct {
	flags *Flags
	app   *taskbook.App

	// register / profile flags
	username string
	email    string
	fullName string

	// list flags
	activeOnly bool

	prefs iojson.FileReader[map[string]any]
}

// NewUserCmd creates a new user command.
func NewUserCmd(flags *Flags, app *taskbook.App) *UserCmd {
	return &UserCmd{flags: flags, app: app}
}

// Register adds the user command to the application.
func (cmd *UserCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "user",
		Usage: "Manage user accounts",
		Description: `User commands register accounts and manage profiles and preferences.

Most task commands act on behalf of the user named by --user.

Examples:
  taskbook user register --username alice --email alice@example.com
  taskbook user login alice
  taskbook --user alice user prefs -f prefs.json`,
		Commands: []*cli.Command{
			cmd.registerCmd(),
			cmd.loginCmd(),
			cmd.listCmd(),
			cmd.showCmd(),
			cmd.profileCmd(),
			cmd.prefsCmd(),
			cmd.roleCmd(),
			cmd.activateCmd(),
			cmd.deactivateCmd(),
		},
	})

	return app
}

func (cmd *UserCmd) registerCmd() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "Register a new user",
		UsageText: "taskbook user register --username <name> --email <email> [--full-name <name>]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "unique username (case-insensitive)", Required: true, Destination: &cmd.username},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "unique email address", Required: true, Destination: &cmd.email},
			&cli.StringFlag{Name: "full-name", Aliases: []string{"n"}, Usage: "display name", Destination: &cmd.fullName},
		},
		Action: cmd.runRegister,
	}
}

func (cmd *UserCmd) loginCmd() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Record a login for a user",
		UsageText: "taskbook user login <username>",
		Action:    cmd.runLogin,
	}
}

func (cmd *UserCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List users",
		UsageText: "taskbook user list [--active]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "active", Usage: "only list active users", Destination: &cmd.activeOnly},
		},
		Action: cmd.runList,
	}
}

func (cmd *UserCmd) showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a user (defaults to the acting user)",
		UsageText: "taskbook user show [username]",
		Action:    cmd.runShow,
	}
}

func (cmd *UserCmd) profileCmd() *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "Update the acting user's name or email",
		UsageText: "taskbook --user <name> user profile [--full-name <name>] [--email <email>]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "full-name", Aliases: []string{"n"}, Usage: "new display name", Destination: &cmd.fullName},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "new email address", Destination: &cmd.email},
		},
		Action: cmd.runProfile,
	}
}

func (cmd *UserCmd) prefsCmd() *cli.Command {
	return &cli.Command{
		Name:      "prefs",
		Usage:     "Merge preferences from a JSON object",
		UsageText: "taskbook --user <name> user prefs [-f prefs.json]",
		Description: `Reads a JSON object and merges the recognized keys into the acting
user's preferences. Unknown keys are ignored.

Keys: theme (string), defaultCategory (string), emailNotifications (bool),
language (string).

Examples:
  echo '{"theme":"dark"}' | taskbook --user alice user prefs
  taskbook --user alice user prefs -f prefs.json`,
		Flags:  []cli.Flag{cmd.prefs.Flag()},
		Action: cmd.runPrefs,
	}
}

func (cmd *UserCmd) roleCmd() *cli.Command {
	return &cli.Command{
		Name:      "role",
		Usage:     "Change a user's role (admin only once an admin exists)",
		UsageText: "taskbook --user <admin> user role <username> <user|admin>",
		Action:    cmd.runRole,
	}
}

func (cmd *UserCmd) activateCmd() *cli.Command {
	return &cli.Command{
		Name:      "activate",
		Usage:     "Reactivate a user",
		UsageText: "taskbook user activate <username>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return cmd.setActive(ctx, c, true)
		},
	}
}

func (cmd *UserCmd) deactivateCmd() *cli.Command {
	return &cli.Command{
		Name:      "deactivate",
		Usage:     "Deactivate a user",
		UsageText: "taskbook user deactivate <username>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return cmd.setActive(ctx, c, false)
		},
	}
}

func (cmd *UserCmd) runRegister(ctx context.Context, c *cli.Command) error {
	u, err := cmd.app.Accounts.Register(ctx, user.CreateParams{
		Username: cmd.username,
		Email:    cmd.email,
		FullName: cmd.fullName,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	return newPrinter(cmd.flags, c).message("registered "+u.Username+" ("+u.ID+")", u)
}

func (cmd *UserCmd) runLogin(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: taskbook user login <username>")
	}

	u, err := cmd.app.Accounts.Login(ctx, c.Args().Get(0))
	if err != nil {
		return err
	}

	return newPrinter(cmd.flags, c).message("logged in as "+u.Username, u)
}

func (cmd *UserCmd) runList(_ context.Context, c *cli.Command) error {
	users := cmd.app.Users.FindAll()
	if cmd.activeOnly {
		users = cmd.app.Users.FindActive()
	}
	return emitList(newPrinter(cmd.flags, c), users, userHeaders, userRow, nil)
}

func (cmd *UserCmd) runShow(_ context.Context, c *cli.Command) error {
	var (
		u   user.User
		err error
	)
	if c.NArg() > 0 {
		u, err = cmd.lookup(c.Args().Get(0))
	} else {
		u, err = cmd.flags.actor(cmd.app)
	}
	if err != nil {
		return err
	}

	return newPrinter(cmd.flags, c).record(u, func() string { return userDetail(u) })
}

func (cmd *UserCmd) runProfile(ctx context.Context, c *cli.Command) error {
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	u, _, err := cmd.app.Users.UpdateProfile(ctx, actor.ID, cmd.fullName, cmd.email)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	return newPrinter(cmd.flags, c).record(u, func() string { return userDetail(u) })
}

func (cmd *UserCmd) runPrefs(ctx context.Context, c *cli.Command) error {
	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}

	updates, err := cmd.prefs.Read()
	if err != nil {
		return fmt.Errorf("read preferences: %w", err)
	}

	u, _, err := cmd.app.Users.UpdatePreferences(ctx, actor.ID, updates)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}

	return newPrinter(cmd.flags, c).record(u.Preferences, func() string { return userDetail(u) })
}

func (cmd *UserCmd) runRole(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: taskbook user role <username> <user|admin>")
	}

	actor, err := cmd.flags.actor(cmd.app)
	if err != nil {
		return err
	}
	// The first admin can be appointed by anyone.
	hasAdmin := slices.ContainsFunc(cmd.app.Users.FindAll(), user.User.IsAdmin)
	if hasAdmin && !actor.IsAdmin() {
		return fmt.Errorf("change role: %w", taskbook.ErrForbidden)
	}

	target, err := cmd.lookup(c.Args().Get(0))
	if err != nil {
		return err
	}

	u, _, err := cmd.app.Users.SetRole(ctx, target.ID, user.Role(c.Args().Get(1)))
	if err != nil {
		return fmt.Errorf("change role: %w", err)
	}

	return newPrinter(cmd.flags, c).message(u.Username+" is now "+string(u.Role), u)
}

func (cmd *UserCmd) setActive(ctx context.Context, c *cli.Command, active bool) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: taskbook user %s <username>", c.Name)
	}

	target, err := cmd.lookup(c.Args().Get(0))
	if err != nil {
		return err
	}

	update, verb := cmd.app.Users.Deactivate, "deactivated "
	if active {
		update, verb = cmd.app.Users.Activate, "activated "
	}

	u, _, err := update(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}

	return newPrinter(cmd.flags, c).message(verb+u.Username, u)
}

// lookup finds any user, active or not, by username.
func (cmd *UserCmd) lookup(username string) (user.User, error) {
	u, ok := cmd.app.Users.FindByUsername(username)
	if !ok {
		return user.User{}, fmt.Errorf("%q: %w", username, taskbook.ErrUserNotFound)
	}
	return u, nil
}
