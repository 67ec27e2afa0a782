package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. A missing subtitle database
// credential is a configuration error the caller must surface; it is never
// silently routed around.
func (c *Config) Validate() error {
	if err := c.validateSubtitleDB(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSubtitleDB() error {
	if c.SubtitleDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/subflow/config.toml"
		}
		return fmt.Errorf("subtitledb.api_key is required. Set SUBTITLEDB_API_KEY env var or edit %s (create with 'subflow config init')", defaultPath)
	}
	if strings.TrimSpace(c.SubtitleDB.UserAgent) == "" {
		return errors.New("subtitledb.user_agent must be set")
	}
	if c.SubtitleDB.DuplicateStalenessSeconds <= 0 {
		return errors.New("subtitledb.duplicate_staleness_seconds must be positive")
	}
	return nil
}

func (c *Config) validateServices() error {
	for key, value := range map[string]string{
		"subtitledb.base_url": c.SubtitleDB.BaseURL,
		"namer.base_url":      c.Namer.BaseURL,
		"tagger.base_url":     c.Tagger.BaseURL,
		"langdetect.base_url": c.LangDetect.BaseURL,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensurePositiveMap(map[string]int{
		"cache.ttl_hours":                  c.Cache.TTLHours,
		"pipeline.concurrency":             c.Pipeline.Concurrency,
		"pipeline.retry_attempts":          c.Pipeline.RetryAttempts,
		"pipeline.retry_initial_seconds":   c.Pipeline.RetryInitialSeconds,
		"pipeline.retry_max_seconds":       c.Pipeline.RetryMaxSeconds,
		"pipeline.request_timeout_seconds": c.Pipeline.RequestTimeoutSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
