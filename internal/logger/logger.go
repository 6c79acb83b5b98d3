package logger

import (
	"io"
	"log/slog"
	"os"
)

// Initialize installs the default slog logger. Logs go to stderr so they
// never interleave with rendered output on stdout.
func Initialize(level slog.Level) {
	InitializeTo(os.Stderr, level)
}

// InitializeTo is Initialize with an explicit writer.
func InitializeTo(w io.Writer, level slog.Level) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(logger)
}

// Named returns the default logger tagged with a component name.
func Named(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
