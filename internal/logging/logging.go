// Package logging builds the process logger: a debug log file plus optional
// console and in-process sinks, all behind one slog.Logger.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config for the logger.
type Config struct {
	Level  string // "debug", "info", "warn", "error"; applies to File
	Format string // "json" or "text"
	// File is appended to. Empty disables the file sink.
	File string
	// Output receives records at ConsoleLevel or above. Optional.
	Output       io.Writer
	ConsoleLevel string
	// Extra handlers receive every record, e.g. the web console hub.
	Extra []slog.Handler
}

// ParseLevel maps a level name to slog.Level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// New creates the logger. The returned closer releases the log file and
// must be called on shutdown.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", cfg.File, err)
		}
		closer = f
		handlers = append(handlers, newHandler(f, cfg.Format, ParseLevel(cfg.Level)))
	}
	if cfg.Output != nil {
		handlers = append(handlers, newHandler(cfg.Output, "text", ParseLevel(cfg.ConsoleLevel)))
	}
	handlers = append(handlers, cfg.Extra...)

	if len(handlers) == 0 {
		handlers = append(handlers, newHandler(os.Stderr, cfg.Format, ParseLevel(cfg.Level)))
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), closer, nil
	}
	return slog.New(Fanout(handlers)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Fanout sends each record to every handler that is enabled for it.
type Fanout []slog.Handler

var _ slog.Handler = Fanout(nil)

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f Fanout) WithGroup(name string) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
