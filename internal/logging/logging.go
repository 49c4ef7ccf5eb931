// Package logging provides the zerolog logger shared by every routing
// subsystem, following the component-scoped pattern the rest of the Cortex
// tree uses for its own log wiring.
package logging

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	base     zerolog.Logger
	initOnce sync.Once
)

// Logger returns the process-wide base logger, initializing it on first use.
func Logger() zerolog.Logger {
	initOnce.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	})
	return base
}

// WithComponent returns a logger scoped to a named subsystem, e.g.
// "classifier", "health", "session".
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}
