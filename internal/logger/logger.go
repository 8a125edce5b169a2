// Package logger configures the process-wide zerolog logger.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Setup sets the global log level and returns the base logger. Unknown
// level names fall back to info.
func Setup(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.DurationFieldUnit = time.Millisecond
	return base
}

// Component returns a logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
