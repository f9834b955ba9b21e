// Package rqllog configures the process-wide slog default handler
// exactly once, from a level name ("debug", "info", "warn", "error").
package rqllog

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var once sync.Once

// Init configures slog's default handler for the process. Only the
// first call takes effect; later calls are no-ops, so a REPL can call
// it unconditionally at startup regardless of how many times Open is
// called in the same process (tests, for instance).
func Init(level string) {
	once.Do(func() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(level),
		})))
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
