package config

import (
	"fmt"
	"net/url"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Run.TargetEntries < 1 {
		return fmt.Errorf("run.target_entries must be >= 1, got %d", cfg.Run.TargetEntries)
	}
	if cfg.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be >= 1, got %d", cfg.Run.Workers)
	}
	if cfg.Run.Workers > 50 {
		return fmt.Errorf("run.workers must be <= 50, got %d", cfg.Run.Workers)
	}
	if cfg.Run.CheckpointEvery < 1 {
		return fmt.Errorf("run.checkpoint_every must be >= 1, got %d", cfg.Run.CheckpointEvery)
	}
	if cfg.Run.MaxPages < 1 {
		return fmt.Errorf("run.max_pages must be >= 1, got %d", cfg.Run.MaxPages)
	}

	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if cfg.Site.ListingPath == "" {
		return fmt.Errorf("site.listing_path must not be empty")
	}

	if cfg.Politeness.Mode != "normal" && cfg.Politeness.Mode != "fast" {
		return fmt.Errorf("politeness.mode must be 'normal' or 'fast', got %q", cfg.Politeness.Mode)
	}
	if cfg.Politeness.PageDelayMin <= 0 || cfg.Politeness.EntryDelayMin <= 0 {
		return fmt.Errorf("politeness delays must be > 0; the pause between requests is a policy constraint")
	}
	if cfg.Politeness.PageDelayMax < cfg.Politeness.PageDelayMin {
		return fmt.Errorf("politeness.page_delay_max must be >= page_delay_min")
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxAttempts < 1 {
		return fmt.Errorf("fetcher.max_attempts must be >= 1, got %d", cfg.Fetcher.MaxAttempts)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	validStorageTypes := map[string]bool{
		"file": true, "mongo": true, "multi": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: file, mongo, multi)", cfg.Storage.Type)
	}
	if cfg.Storage.Type != "mongo" && cfg.Storage.OutputPath == "" {
		return fmt.Errorf("storage.output_path must not be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a fetch target.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", types.ErrInvalidURL)
	}
	return nil
}
