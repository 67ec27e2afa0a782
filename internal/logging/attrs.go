package logging

import (
	"context"
	"log/slog"
)

// Attr aliases slog.Attr so callers build attributes without importing
// log/slog themselves.
type Attr = slog.Attr

func String(key, v string) Attr { return slog.String(key, v) }

func Int(key string, v int) Attr { return slog.Int(key, v) }

func Uint64(key string, v uint64) Attr { return slog.Uint64(key, v) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func attrsToArgs(attrs []Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that drops everything.
func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

// NewComponentLogger tags every record with a component name. A nil base
// falls back to the no-op logger.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = NewNop()
	}
	return base.With(String(FieldComponent, component))
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
