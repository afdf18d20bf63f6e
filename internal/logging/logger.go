package logging

import (
	"io"
	"log/slog"
	"os"
)

func parseLevel(level string) *slog.LevelVar {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}
	return lvl
}

// New creates a JSON slog logger configured at the provided level. If the
// level string is invalid it defaults to info. Used by the stub server.
func New(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler)
}

// NewText creates a human-readable slog logger for the terminal client,
// written to stderr so log lines do not interleave with prompts.
func NewText(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
