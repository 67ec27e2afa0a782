package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"subflow/internal/cache"
	"subflow/internal/config"
	"subflow/internal/logging"
	"subflow/internal/pipeline"
	"subflow/internal/services/langdetect"
	"subflow/internal/services/namer"
	"subflow/internal/services/subdb"
	"subflow/internal/services/tagger"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// ensureLogger builds the shared file logger. CLI output goes to stdout;
// the structured log goes to a file under the configured log directory.
func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		if cfg == nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "subflow.log")},
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// openCache opens the shared TTL cache. A cache that cannot be opened
// (another instance holds the lock, disk trouble) degrades to nil, the
// pipeline runs uncached.
func (c *commandContext) openCache() *cache.Store {
	cfg := c.configValue()
	if cfg == nil {
		return nil
	}
	store, err := cache.Open(cfg)
	if err != nil {
		c.ensureLogger().Warn("cache unavailable, running uncached", logging.Error(err))
		return nil
	}
	return store
}

// newOrchestrator wires the full pipeline from configuration. The returned
// store may be nil; callers close it when non-nil.
func (c *commandContext) newOrchestrator() (*pipeline.Orchestrator, *cache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store := c.openCache()

	identifier := namer.NewClient(cfg.Namer.APIKey, cfg.Namer.BaseURL, namer.WithTimeout(cfg.RequestTimeout()))
	orch, err := pipeline.New(pipeline.Deps{
		Config:     cfg,
		Cache:      store,
		Identifier: identifier,
		Tagger:     tagger.NewClient(cfg.Tagger.BaseURL, tagger.WithTimeout(cfg.RequestTimeout())),
		Detector:   langdetect.NewClient(cfg.LangDetect.BaseURL, cfg.RequestTimeout()),
		Duplicates: c.newSubtitleDB(),
		Logger:     c.ensureLogger(),
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}
	return orch, store, nil
}

func (c *commandContext) newSubtitleDB() *subdb.Client {
	cfg := c.configValue()
	return subdb.NewClient(cfg.SubtitleDB.APIKey, cfg.SubtitleDB.UserAgent, cfg.SubtitleDB.BaseURL, cfg.RequestTimeout())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
