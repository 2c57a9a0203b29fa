// Package telemetry constructs the structured logger shared by every
// textkit subsystem, in the style of the lexer's debug logger: a plain
// text handler, level gated by an environment variable, and timestamp/level
// keys stripped so output stays terse during interactive debugging.
package telemetry

import (
	"log/slog"
	"os"
	"sync"
)

const debugEnvVar = "TEXTKIT_DEBUG"

var (
	once   sync.Once
	logger *slog.Logger
)

// Logger returns the process-wide textkit logger, named for the
// requesting component (e.g. "interpretation", "highlight.manager").
func Logger(component string) *slog.Logger {
	once.Do(initLogger)
	return logger.With("component", component)
}

func initLogger() {
	level := slog.LevelInfo
	if os.Getenv(debugEnvVar) != "" {
		level = slog.LevelDebug
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
