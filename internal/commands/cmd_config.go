package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/taskbook/internal/core/config"
)

// validationError is one failed check in the validate report.
type validationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ConfigCmd struct {
	flags  *Flags
	format string
}

// NewConfigCmd creates a new config command.
func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

// Register adds the config command to the application.
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "taskbook config validate [options]",
				Description: "Validates the configuration file, checking naming rules, backend settings, and file paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.runValidate,
			},
			{
				Name:      "show",
				Usage:     "Print the effective configuration as YAML",
				UsageText: "taskbook config show",
				Action:    cmd.runShow,
			},
		},
	})

	return app
}

func (cmd *ConfigCmd) runValidate(_ context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	errs := flattenErrors(cfg.ValidateDeep(cmd.flags.ConfigPath))
	warnings := cfg.Warnings()

	w := c.Root().Writer
	if cmd.format == "json" {
		out := struct {
			Valid    bool                       `json:"valid"`
			Errors   []validationError          `json:"errors,omitempty"`
			Warnings []config.ValidationWarning `json:"warnings,omitempty"`
		}{
			Valid:    len(errs) == 0,
			Errors:   errs,
			Warnings: warnings,
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		writeValidateText(w, errs, warnings)
	}

	if len(errs) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func writeValidateText(w io.Writer, errs []validationError, warnings []config.ValidationWarning) {
	for _, warn := range warnings {
		_, _ = fmt.Fprintln(w, warnStyle.Render("warning")+" "+warn.Category+": "+warn.Message)
		if warn.Item != "" {
			_, _ = fmt.Fprintf(w, "  Item: %s\n", warn.Item)
		}
	}

	for _, e := range errs {
		if e.Field != "" {
			_, _ = fmt.Fprintln(w, errStyle.Render("error")+" "+e.Field+": "+e.Message)
		} else {
			_, _ = fmt.Fprintln(w, errStyle.Render("error")+" "+e.Message)
		}
	}

	_, _ = fmt.Fprintln(w)
	if len(errs) == 0 {
		_, _ = fmt.Fprintln(w, okStyle.Render("Configuration is valid"))
		return
	}
	_, _ = fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("%d error(s) found", len(errs))))
}

// flattenErrors splits criterio field errors into one entry per field.
func flattenErrors(err error) []validationError {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []validationError{{Message: err.Error()}}
	}

	out := make([]validationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, validationError{Field: fe.Field, Message: fe.Err.Error()})
	}
	return out
}

func (cmd *ConfigCmd) runShow(_ context.Context, c *cli.Command) error {
	cfg := *cmd.flags.Config
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = "********"
	}

	enc := yaml.NewEncoder(c.Root().Writer)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
