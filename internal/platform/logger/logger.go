package logger

import (
	"log/slog"
	"os"
)

// New returns a structured text logger on stdout; services receive it via
// their WithLogger options.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// Discard returns a logger that drops everything, for tests that want a
// non-nil logger without output.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
