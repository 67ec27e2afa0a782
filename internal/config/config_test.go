package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subflow/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "[subtitledb]\napi_key = \"k\"\n")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Cache.TTLHours != 72 {
		t.Fatalf("expected default ttl of 72h, got %d", cfg.Cache.TTLHours)
	}
	if cfg.Pipeline.Concurrency != 4 {
		t.Fatalf("expected default concurrency 4, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.CacheTTL() != 72*time.Hour {
		t.Fatalf("unexpected CacheTTL: %v", cfg.CacheTTL())
	}
	if cfg.Namer.APIKey != "k" {
		t.Fatalf("expected namer to inherit subtitledb credential, got %q", cfg.Namer.APIKey)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("SUBTITLEDB_API_KEY", "")
	path := writeConfig(t, "[logging]\nlevel = \"debug\"\n")
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if !strings.Contains(err.Error(), "subtitledb.api_key") {
		t.Fatalf("expected error to name the offending key, got %v", err)
	}
}

func TestLoadReadsKeyFromEnvironment(t *testing.T) {
	t.Setenv("SUBTITLEDB_API_KEY", "env-key")
	path := writeConfig(t, "")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SubtitleDB.APIKey != "env-key" {
		t.Fatalf("expected env credential, got %q", cfg.SubtitleDB.APIKey)
	}
}

func TestLoadKeepsExplicitTuning(t *testing.T) {
	path := writeConfig(t, "[subtitledb]\napi_key = \"k\"\nduplicate_staleness_seconds = 30\n[pipeline]\nretry_attempts = 2\n")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.RetryAttempts != 2 {
		t.Fatalf("expected explicit retry_attempts to survive, got %d", cfg.Pipeline.RetryAttempts)
	}
	if cfg.DuplicateStaleness() != 30*time.Second {
		t.Fatalf("unexpected staleness window: %v", cfg.DuplicateStaleness())
	}
}

func TestNormalizeExpandsPaths(t *testing.T) {
	path := writeConfig(t, "[subtitledb]\napi_key = \"k\"\n[paths]\ncache_dir = \"~/subflow-cache\"\n")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.HasPrefix(cfg.Paths.CacheDir, "~") {
		t.Fatalf("expected tilde expansion, got %q", cfg.Paths.CacheDir)
	}
	if !filepath.IsAbs(cfg.Paths.CacheDir) {
		t.Fatalf("expected absolute path, got %q", cfg.Paths.CacheDir)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[subtitledb]") {
		t.Fatalf("sample config missing subtitledb section")
	}
}
