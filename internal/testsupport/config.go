package testsupport

import (
	"path/filepath"
	"testing"

	"subflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test,
// dummy API keys, and retry/stagger settings tightened for test speed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Namer.APIKey = "test"
	cfg.SubtitleDB.APIKey = "test"
	cfg.Pipeline.Concurrency = 4
	cfg.Pipeline.StaggerMilliseconds = 1
	cfg.Pipeline.RetryAttempts = 1
	cfg.Pipeline.RetryInitialSeconds = 1
	cfg.Pipeline.RetryMaxSeconds = 1
	cfg.Pipeline.RequestTimeoutSeconds = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithConcurrency caps the number of parallel stage slots.
func WithConcurrency(n int) ConfigOption {
	return func(c *config.Config) {
		c.Pipeline.Concurrency = n
	}
}

// WithRetryAttempts sets the bounded retry count for external calls.
func WithRetryAttempts(n int) ConfigOption {
	return func(c *config.Config) {
		c.Pipeline.RetryAttempts = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
