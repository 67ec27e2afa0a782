package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subflow/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveConfigTarget(targetPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("%s already exists (use --overwrite to replace it)", target)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the subtitledb and namer api_key values before uploading.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// resolveConfigTarget expands the --path flag, falling back to the standard
// per-user config location when the flag is empty.
func resolveConfigTarget(flag string) (string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	expanded, err := config.ExpandPath(flag)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return expanded, nil
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Validate and display the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			rows := [][]string{
				{"cache_dir", cfg.Paths.CacheDir},
				{"log_dir", cfg.Paths.LogDir},
				{"namer.base_url", cfg.Namer.BaseURL},
				{"namer.api_key set", yesNo(cfg.Namer.APIKey != "")},
				{"subtitledb.base_url", cfg.SubtitleDB.BaseURL},
				{"subtitledb.api_key set", yesNo(cfg.SubtitleDB.APIKey != "")},
				{"tagger.base_url", cfg.Tagger.BaseURL},
				{"langdetect.base_url", cfg.LangDetect.BaseURL},
				{"cache.ttl_hours", fmt.Sprintf("%d", cfg.Cache.TTLHours)},
				{"pipeline.concurrency", fmt.Sprintf("%d", cfg.Pipeline.Concurrency)},
				{"pipeline.retry_attempts", fmt.Sprintf("%d", cfg.Pipeline.RetryAttempts)},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{{Name: "Setting"}, {Name: "Value"}},
				rows,
			))
			return nil
		},
	}
}
