package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// SubtitleDB contains configuration for the subtitle database API used for
// duplicate checks and upload submission.
type SubtitleDB struct {
	APIKey                    string `toml:"api_key"`
	UserAgent                 string `toml:"user_agent"`
	BaseURL                   string `toml:"base_url"`
	DuplicateStalenessSeconds int    `toml:"duplicate_staleness_seconds"`
}

// Namer contains configuration for the movie identification service.
type Namer struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// Tagger contains configuration for the remote tag extraction fallback.
type Tagger struct {
	BaseURL string `toml:"base_url"`
}

// LangDetect contains configuration for the language detection service.
type LangDetect struct {
	BaseURL string `toml:"base_url"`
}

// Cache contains configuration for the TTL cache layer.
type Cache struct {
	TTLHours int `toml:"ttl_hours"`
}

// Pipeline contains configuration for the processing orchestrator.
type Pipeline struct {
	Concurrency           int `toml:"concurrency"`
	RetryAttempts         int `toml:"retry_attempts"`
	RetryInitialSeconds   int `toml:"retry_initial_seconds"`
	RetryMaxSeconds       int `toml:"retry_max_seconds"`
	StaggerMilliseconds   int `toml:"stagger_ms"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subflow.
//
// Configuration sections by subsystem:
//   - Paths: cache and log directories
//   - SubtitleDB: credentials and endpoint for duplicate check + upload
//   - Namer: "guess movie from name" identification service
//   - Tagger: remote release-tag extraction fallback
//   - LangDetect: content-based language classification service
//   - Cache: TTL cache expiry
//   - Pipeline: concurrency, retry, stagger, and timeout tuning
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	SubtitleDB SubtitleDB `toml:"subtitledb"`
	Namer      Namer      `toml:"namer"`
	Tagger     Tagger     `toml:"tagger"`
	LangDetect LangDetect `toml:"langdetect"`
	Cache      Cache      `toml:"cache"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subflow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		raw, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// resolveConfigPath picks the file to load: an explicit path wins, otherwise
// the per-user location, then a subflow.toml in the working directory.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		found, err := regularFile(expanded)
		if err != nil {
			return "", false, err
		}
		return expanded, found, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	project, err := filepath.Abs("subflow.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, project} {
		found, err := regularFile(candidate)
		if err != nil {
			return "", false, err
		}
		if found {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func regularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureDirectories creates the directories required for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable name used for metadata extraction.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// CacheTTL returns the configured cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// DuplicateStaleness returns the window within which an orchestrator
// duplicate-check result is still trusted at upload time.
func (c *Config) DuplicateStaleness() time.Duration {
	return time.Duration(c.SubtitleDB.DuplicateStalenessSeconds) * time.Second
}

// RequestTimeout returns the per-call deadline for external services.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Pipeline.RequestTimeoutSeconds) * time.Second
}

// StaggerInterval returns the per-file delay step applied before
// network-facing pipeline stages.
func (c *Config) StaggerInterval() time.Duration {
	return time.Duration(c.Pipeline.StaggerMilliseconds) * time.Millisecond
}

func expandPath(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
