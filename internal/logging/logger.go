package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a structured logger appropriate for the environment.
// Production uses JSON, anything else human-readable text. level is one of
// debug, info, warn or error; empty picks info in production and debug
// elsewhere.
func New(env, level string) *slog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	production := env == "production"

	opts := &slog.HandlerOptions{
		Level: parseLevel(level, production),
	}

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string, production bool) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err == nil {
		return l
	}
	if production {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
