package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	logger := Component("test-component")
	logger.Info().Msg("test message")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "test-component", entry["cmp"])
	assert.Equal(t, "test message", entry["message"])
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	parent := zerolog.New(&buf).With().Str("app", "taskbook").Logger()

	l := With(parent, "gateway")
	l.Warn().Msg("ping failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "gateway", entry["cmp"])
	assert.Equal(t, "taskbook", entry["app"])
	assert.Equal(t, "warn", entry["level"])
}
