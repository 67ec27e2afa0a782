package services

import "context"

type contextKey string

const (
	filePathKey   contextKey = "file_path"
	stageKey      contextKey = "stage"
	generationKey contextKey = "generation"
	requestIDKey  contextKey = "request_id"
)

// WithFilePath annotates context with the record's relative path.
func WithFilePath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, filePathKey, path)
}

// FilePathFromContext extracts the record path if present.
func FilePathFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(filePathKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithGeneration annotates context with the file-set generation the work
// belongs to. Late completions carrying a stale generation are discarded.
func WithGeneration(ctx context.Context, gen uint64) context.Context {
	return context.WithValue(ctx, generationKey, gen)
}

// GenerationFromContext extracts the generation number if present.
func GenerationFromContext(ctx context.Context) (uint64, bool) {
	if v, ok := ctx.Value(generationKey).(uint64); ok {
		return v, true
	}
	return 0, false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
