// Package obslog initializes the collector's structured logger.
package obslog

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Init builds a zerolog logger: a pretty console writer on a TTY, JSON
// otherwise. The returned logger carries no component field; callers
// derive a per-component logger with .With().Str("component", ...).
func Init() *zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var logger zerolog.Logger
	if isTerminal() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().
			Timestamp().
			Caller().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Str("service", "demo-cpb16-collector").
			Logger()
	}

	return &logger
}

// SetLevel parses levelStr and sets the global log level, defaulting to
// info on an unrecognized value.
func SetLevel(logger *zerolog.Logger, levelStr string) {
	var level zerolog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
		logger.Warn().Str("configured_level", levelStr).Msg("unknown log level, defaulting to info")
	}

	zerolog.SetGlobalLevel(level)
}

func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
