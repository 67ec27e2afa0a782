// Package logging wraps log/slog with the handlers and attribute helpers
// used across subflow.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for machine consumption. Components derive child loggers via
// NewComponentLogger so every record carries a stable component field, and
// WithContext lifts pipeline annotations (file path, stage, generation,
// correlation id) out of a context.Context into structured fields.
package logging
