// Package logging constructs the process's single structured zerolog
// logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger's level and output format.
type Options struct {
	Level  string // debug|info|warn|error
	Format string // json|pretty
}

// New builds a zerolog.Logger for the given options.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out zerolog.ConsoleWriter
	if opts.Format == "pretty" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(out).With().Timestamp().Str("service", "kvcore").Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "kvcore").Logger()
}
