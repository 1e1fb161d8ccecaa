package logutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, closer, err := New(Options{Level: "loud"})
	require.Error(t, err)
	assert.NotNil(t, closer)
}

func TestNew_AppendsToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "taskbook.log")

	for _, msg := range []string{"first", "second"} {
		l, closer, err := New(Options{Level: "info", File: file})
		require.NoError(t, err)
		l.Info().Msg(msg)
		l.Debug().Msg("filtered")
		closer()
	}

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"message":"first"`)
	assert.Contains(t, lines[1], `"message":"second"`)
	assert.Contains(t, lines[0], `"time":`)
}

func TestNew_ConsoleFormat(t *testing.T) {
	file := filepath.Join(t.TempDir(), "console.log")

	l, closer, err := New(Options{Level: "debug", File: file, Console: true})
	require.NoError(t, err)
	l.Debug().Str("k", "v").Msg("hello")
	closer()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "k=v")
	assert.NotContains(t, string(data), `"message"`)
}

type tagHook struct{}

func (tagHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) { e.Str("tag", "hooked") }

func TestNew_Hooks(t *testing.T) {
	file := filepath.Join(t.TempDir(), "hook.log")

	l, closer, err := New(Options{Level: "info", File: file, Hooks: []zerolog.Hook{tagHook{}}})
	require.NoError(t, err)
	l.Info().Msg("x")
	closer()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tag":"hooked"`)
}
