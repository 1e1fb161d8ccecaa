package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskbook/internal/taskbook"
	"github.com/colonyops/taskbook/pkg/iojson"
)

type ExportCmd struct {
	flags *Flags
	app   *taskbook.App

	match  []string
	output string
	meta   bool
}

// NewExportCmd creates a new export command.
func NewExportCmd(flags *Flags, app *taskbook.App) *ExportCmd {
	return &ExportCmd{flags: flags, app: app}
}

// Register adds the export command to the application.
func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "export",
		Usage:     "Export stored collections as a JSON bundle",
		UsageText: "taskbook export [--match <glob>]... [--output <file>] [--meta]",
		Description: `Writes every envelope stored under the configured namespace as one JSON
document. --match limits the bundle to keys matching a doublestar glob and
may be repeated. --meta prints the metadata ledger instead.

Examples:
  taskbook export > backup.json
  taskbook export --match 'taskbook_tasks' -o tasks.json`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "only export keys matching this glob (repeatable)",
				Destination: &cmd.match,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write to a file instead of stdout",
				Destination: &cmd.output,
			},
			&cli.BoolFlag{
				Name:        "meta",
				Usage:       "print the metadata ledger",
				Destination: &cmd.meta,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ExportCmd) run(ctx context.Context, c *cli.Command) error {
	for _, p := range cmd.match {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid --match pattern %q", p)
		}
	}

	var (
		payload any
		ok      bool
	)
	if cmd.meta {
		payload, ok = cmd.app.Gateway.Metadata(ctx)
	} else {
		payload, ok = cmd.app.Export(ctx, cmd.match...)
	}
	if !ok {
		return fmt.Errorf("export: storage is unavailable")
	}

	if cmd.output == "" {
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, payload); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		return nil
	}

	f, err := os.Create(cmd.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", cmd.output, err)
	}
	if err := writeAndClose(f, c.Root().ErrWriter, payload); err != nil {
		return fmt.Errorf("write export %s: %w", cmd.output, err)
	}

	log.Info().Str("file", cmd.output).Msg("export written")
	return nil
}

// writeAndClose encodes payload into wc and closes it. A failed close is
// reported even when the write succeeded.
func writeAndClose(wc io.WriteCloser, errW io.Writer, payload any) error {
	if err := iojson.WriteWith(wc, errW, payload); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}
