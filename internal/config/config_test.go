package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.Run.TargetEntries = 0 }},
		{"zero workers", func(c *Config) { c.Run.Workers = 0 }},
		{"too many workers", func(c *Config) { c.Run.Workers = 51 }},
		{"zero checkpoint cadence", func(c *Config) { c.Run.CheckpointEvery = 0 }},
		{"zero max pages", func(c *Config) { c.Run.MaxPages = 0 }},
		{"bad base url", func(c *Config) { c.Site.BaseURL = "ftp://example.com" }},
		{"empty listing path", func(c *Config) { c.Site.ListingPath = "" }},
		{"unknown politeness mode", func(c *Config) { c.Politeness.Mode = "ludicrous" }},
		{"zero page delay", func(c *Config) { c.Politeness.PageDelayMin = 0 }},
		{"inverted page delay window", func(c *Config) { c.Politeness.PageDelayMax = c.Politeness.PageDelayMin / 2 }},
		{"unknown fetcher", func(c *Config) { c.Fetcher.Type = "carrier-pigeon" }},
		{"zero attempts", func(c *Config) { c.Fetcher.MaxAttempts = 0 }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "tape" }},
		{"empty output path", func(c *Config) { c.Storage.OutputPath = "" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPolitenessDelays(t *testing.T) {
	p := PolitenessConfig{
		Mode:              "normal",
		PageDelayMin:      time.Second,
		PageDelayMax:      2 * time.Second,
		EntryDelayMin:     500 * time.Millisecond,
		EntryDelayMax:     1200 * time.Millisecond,
		FastEntryDelayMin: 300 * time.Millisecond,
		FastEntryDelayMax: 700 * time.Millisecond,
	}

	for i := 0; i < 100; i++ {
		if d := p.PageDelay(); d < time.Second || d > 2*time.Second {
			t.Fatalf("page delay %s outside window", d)
		}
		if d := p.EntryDelay(); d < 500*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("entry delay %s outside window", d)
		}
	}

	p.Mode = "fast"
	for i := 0; i < 100; i++ {
		if d := p.EntryDelay(); d < 300*time.Millisecond || d > 700*time.Millisecond {
			t.Fatalf("fast entry delay %s outside window", d)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gradharvest.yaml")
	content := `
run:
  target_entries: 250
  workers: 8
site:
  base_url: https://example.com
politeness:
  mode: fast
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Run.TargetEntries != 250 {
		t.Errorf("target = %d", cfg.Run.TargetEntries)
	}
	if cfg.Run.Workers != 8 {
		t.Errorf("workers = %d", cfg.Run.Workers)
	}
	if cfg.Site.BaseURL != "https://example.com" {
		t.Errorf("base url = %s", cfg.Site.BaseURL)
	}
	if cfg.Politeness.Mode != "fast" {
		t.Errorf("mode = %s", cfg.Politeness.Mode)
	}
	// Unset keys keep their defaults.
	if cfg.Run.MaxPages != 100 {
		t.Errorf("max pages = %d, want default", cfg.Run.MaxPages)
	}
	if cfg.Storage.Type != "file" {
		t.Errorf("storage type = %s, want default", cfg.Storage.Type)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
