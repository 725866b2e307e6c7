package config

import (
	"math/rand"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for gradharvest.
type Config struct {
	Run        RunConfig        `mapstructure:"run"        yaml:"run"`
	Site       SiteConfig       `mapstructure:"site"       yaml:"site"`
	Politeness PolitenessConfig `mapstructure:"politeness" yaml:"politeness"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"    yaml:"fetcher"`
	Storage    StorageConfig    `mapstructure:"storage"    yaml:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
}

// RunConfig controls the collection run itself.
type RunConfig struct {
	// TargetEntries is how many successfully processed entries end the run.
	TargetEntries int `mapstructure:"target_entries" yaml:"target_entries"`

	// Workers is the size of the detail-fetch worker pool.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// CheckpointEvery is the count-based checkpoint cadence: a snapshot is
	// written after every N successfully processed entries.
	CheckpointEvery int `mapstructure:"checkpoint_every" yaml:"checkpoint_every"`

	// MaxPages bounds the listing walk to prevent endless pagination.
	MaxPages int `mapstructure:"max_pages" yaml:"max_pages"`

	// CleanOnly skips the network phases and reprocesses an existing raw
	// data file through the extractor.
	CleanOnly bool `mapstructure:"clean_only" yaml:"clean_only"`

	// Resume restores progress from the latest checkpoint when one exists.
	Resume bool `mapstructure:"resume" yaml:"resume"`

	// CheckpointDir is where checkpoint snapshots are written.
	CheckpointDir string `mapstructure:"checkpoint_dir" yaml:"checkpoint_dir"`
}

// SiteConfig identifies the listing site endpoints.
type SiteConfig struct {
	// BaseURL is the site root, e.g. https://www.thegradcafe.com.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// ListingPath is the paginated survey path relative to BaseURL.
	ListingPath string `mapstructure:"listing_path" yaml:"listing_path"`
}

// PolitenessConfig controls the mandated pauses between requests. The delay
// is a constraint of the collection policy, not a performance knob.
type PolitenessConfig struct {
	// Mode is "normal" or "fast". Fast shortens the windows but never
	// removes them.
	Mode string `mapstructure:"mode" yaml:"mode"`

	PageDelayMin  time.Duration `mapstructure:"page_delay_min"  yaml:"page_delay_min"`
	PageDelayMax  time.Duration `mapstructure:"page_delay_max"  yaml:"page_delay_max"`
	EntryDelayMin time.Duration `mapstructure:"entry_delay_min" yaml:"entry_delay_min"`
	EntryDelayMax time.Duration `mapstructure:"entry_delay_max" yaml:"entry_delay_max"`

	FastEntryDelayMin time.Duration `mapstructure:"fast_entry_delay_min" yaml:"fast_entry_delay_min"`
	FastEntryDelayMax time.Duration `mapstructure:"fast_entry_delay_max" yaml:"fast_entry_delay_max"`
}

// PageDelay returns a randomized pause for the next listing-page fetch.
func (p PolitenessConfig) PageDelay() time.Duration {
	return randomBetween(p.PageDelayMin, p.PageDelayMax)
}

// EntryDelay returns a randomized pause before a detail-page fetch,
// honoring the fast/normal mode.
func (p PolitenessConfig) EntryDelay() time.Duration {
	if p.Mode == "fast" {
		return randomBetween(p.FastEntryDelayMin, p.FastEntryDelayMax)
	}
	return randomBetween(p.EntryDelayMin, p.EntryDelayMax)
}

func randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	// Type selects the fetcher implementation: "http" or "browser".
	Type string `mapstructure:"type" yaml:"type"`

	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"      yaml:"max_attempts"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"  yaml:"retry_base_delay"`
	RetryMaxDelay   time.Duration `mapstructure:"retry_max_delay"   yaml:"retry_max_delay"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
}

// StorageConfig controls output sinks.
type StorageConfig struct {
	// Type is "file", "mongo", or "multi" (file and mongo together).
	Type string `mapstructure:"type" yaml:"type"`

	// OutputPath is the cleaned-record JSON file.
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`

	// RawPath is the raw-record JSONL diagnostics file.
	RawPath string `mapstructure:"raw_path" yaml:"raw_path"`

	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults. The politeness
// windows mirror the collection policy: 1-2s between listing pages,
// 0.5-1.2s before a detail fetch (0.3-0.7s in fast mode).
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			TargetEntries:   1000,
			Workers:         5,
			CheckpointEvery: 500,
			MaxPages:        100,
			CheckpointDir:   ".gradharvest_checkpoints",
		},
		Site: SiteConfig{
			BaseURL:     "https://www.thegradcafe.com",
			ListingPath: "/survey",
		},
		Politeness: PolitenessConfig{
			Mode:              "normal",
			PageDelayMin:      1 * time.Second,
			PageDelayMax:      2 * time.Second,
			EntryDelayMin:     500 * time.Millisecond,
			EntryDelayMax:     1200 * time.Millisecond,
			FastEntryDelayMin: 300 * time.Millisecond,
			FastEntryDelayMax: 700 * time.Millisecond,
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			RequestTimeout:  30 * time.Second,
			MaxAttempts:     3,
			RetryBaseDelay:  2 * time.Second,
			RetryMaxDelay:   30 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			FollowRedirects: true,
			MaxRedirects:    10,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Storage: StorageConfig{
			Type:            "file",
			OutputPath:      "output/applicant_data.json",
			RawPath:         "output/raw_data.jsonl",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "gradharvest",
			MongoCollection: "applicants",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
