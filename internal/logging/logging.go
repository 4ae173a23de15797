// Package logging configures the structured logger shared by the CLI,
// the plugin runner and the engine.
package logging

import (
	"log/slog"
	"os"
)

// New builds a text logger writing to stderr. Debug mode lowers the
// level so per-record plugin and importer chatter becomes visible.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// ErrAttr folds an error into a structured attribute.
func ErrAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}
