// Package logging provides structured logging configuration using log/slog.
//
// This package integrates with chi's RequestID middleware to propagate
// request IDs through structured log entries, so every line a request
// produces can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs a logger writing to stdout as the slog default.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w. The CLI uses it with stderr so that
// command output on stdout stays machine-readable.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger, tagged with the chi request id
// when ctx carries one.
//
//	func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
//	    logging.FromContext(r.Context()).Info("row deleted", "row_id", id)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields returns a request logger with additional structured fields.
//
//	importLog := logging.WithFields(ctx, "file", header.Filename)
//	importLog.Info("import started")
//	importLog.Info("import applied", "rows", added)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
