package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskbook/internal/commands"
	"github.com/colonyops/taskbook/internal/core/config"
	"github.com/colonyops/taskbook/internal/core/eventbus"
	"github.com/colonyops/taskbook/internal/core/gateway"
	"github.com/colonyops/taskbook/internal/core/kv"
	"github.com/colonyops/taskbook/internal/core/logging"
	"github.com/colonyops/taskbook/internal/data/db"
	"github.com/colonyops/taskbook/internal/data/stores"
	"github.com/colonyops/taskbook/internal/taskbook"
	"github.com/colonyops/taskbook/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		taskApp    = &taskbook.App{}
		database   *db.DB
		redisStore *stores.RedisStore
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "taskbook",
		Usage:     "Track tasks for multiple users",
		UsageText: "taskbook [global options] command [command options]",
		Description: `Taskbook keeps tasks and user accounts in a key-value store.

Tasks belong to the user that created them and may be assigned to another
user. Most commands act on behalf of the user named by --user.

Run 'taskbook user register' to create the first account.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TASKBOOK_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/taskbook.log)",
				Sources:     cli.EnvVars("TASKBOOK_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TASKBOOK_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("TASKBOOK_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "backend",
				Usage:       "storage backend (memory, sqlite, redis); overrides the config file",
				Sources:     cli.EnvVars("TASKBOOK_BACKEND"),
				Destination: &flags.Backend,
			},
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "username to act as",
				Sources:     cli.EnvVars("TASKBOOK_USER"),
				Destination: &flags.User,
			},
			&cli.StringFlag{
				Name:        "output",
				Usage:       "output format (auto, json, table)",
				Sources:     cli.EnvVars("TASKBOOK_OUTPUT"),
				Value:       commands.OutputAuto,
				Destination: &flags.Output,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/taskbook.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "taskbook.log")
			}

			logger, closer, err := logutils.New(logutils.Options{
				Level: flags.LogLevel,
				File:  logFile,
				Hooks: []zerolog.Hook{logging.ContextHook{}},
			})
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			ctx = logging.WithCommand(ctx, commandPath(c.Args().Slice()))

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.Backend != "" {
				cfg.Backend = config.Backend(flags.Backend)
				if err := cfg.Validate(); err != nil {
					return ctx, fmt.Errorf("backend: %w", err)
				}
			}
			flags.Config = cfg

			var store kv.Store
			switch cfg.Backend {
			case config.BackendMemory:
				store = stores.NewMemoryStore()
			case config.BackendRedis:
				redisStore, err = stores.OpenRedisStore(ctx, stores.RedisOptions{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				if err != nil {
					return ctx, fmt.Errorf("open redis: %w", err)
				}
				store = redisStore
			default:
				database, err = openDatabase(cfg)
				if err != nil {
					return ctx, fmt.Errorf("open database: %w", err)
				}
				store = stores.NewKVStore(database)
			}

			gw := gateway.New(ctx, store, gateway.Options{
				Namespace: cfg.Namespace,
				Version:   cfg.Version,
			}, logger)

			bus := eventbus.New()
			eventbus.RegisterDebugLogger(bus, logger)
			eventbus.RegisterAuditLogger(bus, logging.Component("audit"))

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*taskApp = *taskbook.NewApp(ctx, gw, bus, nil, logger)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if redisStore != nil {
				if err := redisStore.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close redis client")
				}
			}

			// Close database connection
			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewUserCmd(flags, taskApp).Register(app)
	app = commands.NewTaskCmd(flags, taskApp).Register(app)
	app = commands.NewExportCmd(flags, taskApp).Register(app)
	app = commands.NewConfigCmd(flags).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}

// openDatabase opens the SQLite database, moving a corrupted file aside and
// starting fresh when needed.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DataDir, cfg.OpenOptions())
	if err == nil || !stores.IsCorruptionError(err) {
		return database, err
	}

	backup, rerr := stores.RecoverFromCorruption(cfg.DataDir)
	if rerr != nil {
		return nil, fmt.Errorf("%w (recovery failed: %w)", err, rerr)
	}
	log.Warn().Err(err).Str("backup", backup).Msg("database was corrupted; moved aside and starting fresh")

	return db.Open(cfg.DataDir, cfg.OpenOptions())
}

// commandPath returns the leading subcommand names, e.g. "task create".
func commandPath(args []string) string {
	var names []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") || len(names) == 2 {
			break
		}
		names = append(names, a)
	}
	return strings.Join(names, " ")
}
