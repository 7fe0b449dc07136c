// Package logger configures log/slog for the bot and carries request-scoped
// loggers through context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Format selects the slog handler.
type Format string

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
	// FormatText writes logfmt-style key=value pairs.
	FormatText Format = "text"
)

// ParseLevel parses a string into a slog.Level. Unknown values mean Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options configures a logger.
type Options struct {
	Level     slog.Level
	Format    Format
	Output    io.Writer
	AddSource bool

	// Attrs are added to every record, e.g. service and environment.
	Attrs []slog.Attr
}

// New creates a slog.Logger from options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	hopts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(string(opts.Format), string(FormatText)) {
		handler = slog.NewTextHandler(opts.Output, hopts)
	} else {
		handler = slog.NewJSONHandler(opts.Output, hopts)
	}
	if len(opts.Attrs) > 0 {
		handler = handler.WithAttrs(opts.Attrs)
	}

	return slog.New(handler)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type ctxKey struct{}

// WithContext returns a context carrying l.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ATTRIBUTES
// ══════════════════════════════════════════════════════════════════════════════

func UserID(id string) slog.Attr      { return slog.String("user_id", id) }
func SessionID(id string) slog.Attr   { return slog.String("session_id", id) }
func Component(name string) slog.Attr { return slog.String("component", name) }

// Latency records a duration in milliseconds.
func Latency(d time.Duration) slog.Attr {
	return slog.Int64("latency_ms", d.Milliseconds())
}

// Err creates an error attribute. A nil error yields an empty attribute,
// which slog drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
