package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentKey is the field that names the emitting component.
const ComponentKey = "cmp"

// Component creates a logger derived from the global logger with a
// component identifier.
func Component(name string) zerolog.Logger {
	return With(log.Logger, name)
}

// With derives a component logger from parent.
func With(parent zerolog.Logger, name string) zerolog.Logger {
	return parent.With().Str(ComponentKey, name).Logger()
}
