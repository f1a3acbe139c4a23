// Package logger builds slog loggers with a consistent format and attribute
// vocabulary for applications embedding the social login flow.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Format represents logger output format.
type Format string

const (
	// FormatJSON outputs structured logs for production aggregation.
	FormatJSON Format = "json"
	// FormatText outputs human-readable logs for development.
	FormatText Format = "text"
)

type config struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

// Option configures logger creation.
type Option func(*config)

// WithLevel sets the minimum log level.
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output format. Panics on unknown formats so a
// misconfigured service fails at startup rather than at first log call.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		default:
			panic(fmt.Errorf("invalid log format %q: must be %q or %q", f, FormatJSON, FormatText))
		}
	}
}

// WithOutput sets a custom output destination; nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// New creates a slog.Logger. Defaults: info level, text format, stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		format: FormatText,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	ho := &slog.HandlerOptions{Level: c.level}

	var handler slog.Handler
	switch c.format {
	case FormatJSON:
		handler = slog.NewJSONHandler(c.output, ho)
	default:
		handler = slog.NewTextHandler(c.output, ho)
	}

	if len(c.attrs) > 0 {
		handler = handler.WithAttrs(c.attrs)
	}

	return slog.New(handler)
}
