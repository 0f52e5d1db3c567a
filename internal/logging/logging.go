// Package logging wires the process-wide slog handler.
package logging

import (
	"log/slog"
	"os"
)

// Init installs a text handler on stderr. Debug mode surfaces per-line
// ingest diagnostics that are otherwise suppressed; command output on
// stdout stays clean either way.
func Init(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
