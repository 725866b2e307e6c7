package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("GRADHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("gradharvest")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".gradharvest"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("run.target_entries", cfg.Run.TargetEntries)
	v.SetDefault("run.workers", cfg.Run.Workers)
	v.SetDefault("run.checkpoint_every", cfg.Run.CheckpointEvery)
	v.SetDefault("run.max_pages", cfg.Run.MaxPages)
	v.SetDefault("run.clean_only", cfg.Run.CleanOnly)
	v.SetDefault("run.resume", cfg.Run.Resume)
	v.SetDefault("run.checkpoint_dir", cfg.Run.CheckpointDir)

	v.SetDefault("site.base_url", cfg.Site.BaseURL)
	v.SetDefault("site.listing_path", cfg.Site.ListingPath)

	v.SetDefault("politeness.mode", cfg.Politeness.Mode)
	v.SetDefault("politeness.page_delay_min", cfg.Politeness.PageDelayMin)
	v.SetDefault("politeness.page_delay_max", cfg.Politeness.PageDelayMax)
	v.SetDefault("politeness.entry_delay_min", cfg.Politeness.EntryDelayMin)
	v.SetDefault("politeness.entry_delay_max", cfg.Politeness.EntryDelayMax)
	v.SetDefault("politeness.fast_entry_delay_min", cfg.Politeness.FastEntryDelayMin)
	v.SetDefault("politeness.fast_entry_delay_max", cfg.Politeness.FastEntryDelayMax)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.max_attempts", cfg.Fetcher.MaxAttempts)
	v.SetDefault("fetcher.retry_base_delay", cfg.Fetcher.RetryBaseDelay)
	v.SetDefault("fetcher.retry_max_delay", cfg.Fetcher.RetryMaxDelay)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.raw_path", cfg.Storage.RawPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
