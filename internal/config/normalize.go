package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSubtitleDB()
	c.normalizeServices()
	c.normalizeCache()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSubtitleDB() {
	c.SubtitleDB.APIKey = strings.TrimSpace(c.SubtitleDB.APIKey)
	if c.SubtitleDB.APIKey == "" {
		if value, ok := os.LookupEnv("SUBTITLEDB_API_KEY"); ok {
			c.SubtitleDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.SubtitleDB.UserAgent = strings.TrimSpace(c.SubtitleDB.UserAgent)
	if c.SubtitleDB.UserAgent == "" {
		c.SubtitleDB.UserAgent = defaultSubtitleDBUserAgent
	}
	c.SubtitleDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.SubtitleDB.BaseURL), "/")
	if c.SubtitleDB.BaseURL == "" {
		c.SubtitleDB.BaseURL = defaultSubtitleDBBaseURL
	}
	if c.SubtitleDB.DuplicateStalenessSeconds <= 0 {
		c.SubtitleDB.DuplicateStalenessSeconds = defaultDuplicateStalenessSeconds
	}
}

func (c *Config) normalizeServices() {
	c.Namer.BaseURL = strings.TrimRight(strings.TrimSpace(c.Namer.BaseURL), "/")
	if c.Namer.BaseURL == "" {
		c.Namer.BaseURL = defaultNamerBaseURL
	}
	c.Namer.APIKey = strings.TrimSpace(c.Namer.APIKey)
	if c.Namer.APIKey == "" {
		// The namer shares credentials with the subtitle database unless
		// explicitly overridden.
		c.Namer.APIKey = c.SubtitleDB.APIKey
	}
	c.Tagger.BaseURL = strings.TrimRight(strings.TrimSpace(c.Tagger.BaseURL), "/")
	if c.Tagger.BaseURL == "" {
		c.Tagger.BaseURL = defaultTaggerBaseURL
	}
	c.LangDetect.BaseURL = strings.TrimRight(strings.TrimSpace(c.LangDetect.BaseURL), "/")
	if c.LangDetect.BaseURL == "" {
		c.LangDetect.BaseURL = defaultLangDetectBaseURL
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = defaultCacheTTLHours
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = defaultPipelineConcurrency
	}
	if c.Pipeline.RetryAttempts <= 0 {
		c.Pipeline.RetryAttempts = defaultRetryAttempts
	}
	if c.Pipeline.RetryInitialSeconds <= 0 {
		c.Pipeline.RetryInitialSeconds = defaultRetryInitialSeconds
	}
	if c.Pipeline.RetryMaxSeconds < c.Pipeline.RetryInitialSeconds {
		c.Pipeline.RetryMaxSeconds = defaultRetryMaxSeconds
	}
	if c.Pipeline.StaggerMilliseconds < 0 {
		c.Pipeline.StaggerMilliseconds = defaultStaggerMilliseconds
	}
	if c.Pipeline.RequestTimeoutSeconds <= 0 {
		c.Pipeline.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
