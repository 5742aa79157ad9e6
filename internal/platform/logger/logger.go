package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Services take it by
// injection so tests can pass a discarding handler.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
