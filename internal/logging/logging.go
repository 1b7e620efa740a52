// Package logging builds the structured loggers used across channel-memory.
package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// New creates a logger writing to stderr. When stderr is a terminal it uses
// slog.TextHandler for human-readable output; otherwise slog.JSONHandler, so
// piped output (MCP hosts, scripts) stays machine-parseable.
func New(level slog.Level) *slog.Logger {
	return NewWriter(os.Stderr, level, term.IsTerminal(int(os.Stderr.Fd())))
}

// NewWriter creates a logger writing to w, in text or JSON form.
func NewWriter(w io.Writer, level slog.Level, text bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}

// OrDiscard returns l, or a logger that drops everything when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
