// Package logutils builds the root zerolog logger for the command line.
package logutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// Level is one of: debug, info, warn, error, fatal, panic, disabled.
	Level string
	// File is appended to when set. Otherwise logs go to stderr, leaving
	// stdout for command output.
	File string
	// Console switches from JSON lines to zerolog's human readable writer.
	Console bool
	// Hooks run on every event, e.g. logging.ContextHook.
	Hooks []zerolog.Hook
}

// New returns a logger and a closer that releases the log file, if any.
func New(opts Options) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Logger{}, closer, fmt.Errorf("parse log level: %w", err)
	}

	var writer io.Writer = os.Stderr
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("open log file: %w", err)
		}
		closer = func() { _ = f.Close() }
		writer = f
	}

	if opts.Console {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    true,
		}
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	for _, h := range opts.Hooks {
		l = l.Hook(h)
	}

	return l, closer, nil
}
