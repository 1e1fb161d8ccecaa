package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// ErrNoInput is returned when no file is given and stdin is a terminal.
var ErrNoInput = errors.New("no input provided (stdin is a terminal); use -f flag or pipe JSON input")

// FileReader decodes one JSON document of type T from the file named by its
// flag, or from stdin when the flag is unset.
type FileReader[T any] struct {
	fileFlagValue string

	// Stdin replaces os.Stdin when set. A replaced stdin is never treated as
	// a terminal.
	Stdin io.Reader
}

func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file (reads from stdin if not provided)",
		Destination: &fr.fileFlagValue,
	}
}

func (fr *FileReader[T]) Read() (T, error) {
	var zero T

	if fr.fileFlagValue != "" {
		f, err := os.Open(fr.fileFlagValue)
		if err != nil {
			return zero, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		return Decode[T](f)
	}

	if fr.Stdin != nil {
		return Decode[T](fr.Stdin)
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return zero, ErrNoInput
	}
	return Decode[T](os.Stdin)
}

// Decode reads exactly one JSON value from r. Trailing data after the value
// is an error.
func Decode[T any](r io.Reader) (T, error) {
	var out T

	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode JSON: %w", err)
	}
	if dec.More() {
		return out, fmt.Errorf("decode JSON: unexpected data after the first value")
	}
	return out, nil
}
