package simline

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// newLogger builds the structured logger used by an Environment. By default
// it writes human-readable output to stderr at Info level; callers override
// both via WithLogger / WithLogLevel options on the System builder.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// defaultLogger is used when a System is built without an explicit WithLogger
// option.
func defaultLogger() zerolog.Logger {
	return newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, zerolog.InfoLevel)
}
