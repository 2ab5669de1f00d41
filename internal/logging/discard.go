package logging

import (
	"io"
	"log/slog"
)

// Discard returns a Logger that drops every record. Handy in tests.
func Discard() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
