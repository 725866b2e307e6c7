package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Pjroelofsen/gradharvest/internal/config"
	"github.com/Pjroelofsen/gradharvest/internal/engine"
	"github.com/Pjroelofsen/gradharvest/internal/fetcher"
	"github.com/Pjroelofsen/gradharvest/internal/observability"
	"github.com/Pjroelofsen/gradharvest/internal/storage"
)

var (
	cfgFile    string
	verbose    bool
	target     int
	workers    int
	checkEvery int
	maxPages   int
	outputPath string
	fastMode   bool
	cleanOnly  bool
	resume     bool
	useBrowser bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gradharvest",
		Short: "gradharvest — graduate admission result collector",
		Long: `gradharvest collects graduate admission results from public survey
listings and normalizes them into a structured dataset.

Features:
  • Sequential listing discovery with a bounded concurrent detail-fetch pool
  • Field extraction and normalization (GPA, GRE, decisions, terms)
  • Checkpoint-based pause/resume
  • JSON, JSONL, and MongoDB output
  • Prometheus metrics endpoint`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// collectCmd creates the "collect" subcommand.
func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect admission results until the target count is reached",
		RunE:  runCollect,
	}

	cmd.Flags().IntVarP(&target, "target", "t", 0, "number of entries to collect (0 = config default)")
	cmd.Flags().IntVarP(&workers, "workers", "n", 0, "detail-fetch worker count (0 = config default)")
	cmd.Flags().IntVar(&checkEvery, "checkpoint-every", 0, "checkpoint after every N entries (0 = config default)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum listing pages to walk (0 = config default)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "cleaned output file path")
	cmd.Flags().BoolVar(&fastMode, "fast", false, "use the shorter politeness delay window")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the last checkpoint")
	cmd.Flags().BoolVar(&useBrowser, "browser", false, "fetch with a headless browser instead of plain HTTP")

	return cmd
}

// cleanCmd creates the "clean" subcommand: reprocess an existing raw JSONL
// file through the extraction pipeline without fetching anything.
func cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Re-run normalization over previously collected raw records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanOnly = true
			return runCollect(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "cleaned output file path")

	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)

	if cfg.Run.Workers > 10 {
		logger.Warn("high worker count may overwhelm the target site", "workers", cfg.Run.Workers)
	}
	if cfg.Run.TargetEntries > 50000 {
		logger.Warn("very large target, expect a long run", "target", cfg.Run.TargetEntries)
	}

	var f fetcher.Fetcher
	if !cfg.Run.CleanOnly {
		if cfg.Fetcher.Type == "browser" {
			f, err = fetcher.NewBrowserFetcher(cfg, logger)
		} else {
			f, err = fetcher.NewHTTPFetcher(cfg, logger)
		}
		if err != nil {
			return fmt.Errorf("create fetcher: %w", err)
		}
		defer f.Close()
	}

	store, err := storage.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	eng := engine.New(cfg, f, store, logger)

	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics(eng.Stats(), eng.QueueDepth, logger)
		metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// First SIGINT triggers a graceful shutdown with a checkpoint; a
	// second one kills the process.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
		<-sigCh
		logger.Error("second signal, exiting immediately")
		os.Exit(1)
	}()

	logger.Info("starting collection",
		"target", cfg.Run.TargetEntries,
		"workers", cfg.Run.Workers,
		"base_url", cfg.Site.BaseURL,
		"output", cfg.Storage.OutputPath,
		"resume", cfg.Run.Resume,
	)

	report, err := eng.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printReport(cfg, report)
	return nil
}

func printReport(cfg *config.Config, r *engine.Report) {
	switch {
	case r.Interrupted:
		fmt.Printf("\n⏸  Run interrupted after %s — checkpoint saved, rerun with --resume\n", r.Duration.Round(time.Millisecond))
	case r.Partial:
		fmt.Printf("\n⚠️  Run ended early in %s (pagination exhausted or failing)\n", r.Duration.Round(time.Millisecond))
	default:
		fmt.Printf("\n✅ Collection complete in %s\n", r.Duration.Round(time.Millisecond))
	}
	fmt.Printf("   Entries:    %d attempted, %d succeeded, %d failed\n", r.Attempted, r.Succeeded, r.Failed)
	fmt.Printf("   Duplicates: %d dropped\n", r.Duplicates)
	fmt.Printf("   Pages:      %d walked\n", r.PagesWalked)
	fmt.Printf("   Records:    %d written\n", r.Records)
	fmt.Printf("   Output:     %s\n", cfg.Storage.OutputPath)
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Run:\n")
			fmt.Printf("  Target Entries:    %d\n", cfg.Run.TargetEntries)
			fmt.Printf("  Workers:           %d\n", cfg.Run.Workers)
			fmt.Printf("  Checkpoint Every:  %d\n", cfg.Run.CheckpointEvery)
			fmt.Printf("  Max Pages:         %d\n", cfg.Run.MaxPages)
			fmt.Printf("  Checkpoint Dir:    %s\n", cfg.Run.CheckpointDir)
			fmt.Printf("\nSite:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Site.BaseURL)
			fmt.Printf("  Listing Path:      %s\n", cfg.Site.ListingPath)
			fmt.Printf("\nPoliteness:\n")
			fmt.Printf("  Mode:              %s\n", cfg.Politeness.Mode)
			fmt.Printf("  Page Delay:        %s – %s\n", cfg.Politeness.PageDelayMin, cfg.Politeness.PageDelayMax)
			fmt.Printf("  Entry Delay:       %s – %s\n", cfg.Politeness.EntryDelayMin, cfg.Politeness.EntryDelayMax)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Attempts:      %d\n", cfg.Fetcher.MaxAttempts)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("  Raw Path:          %s\n", cfg.Storage.RawPath)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gradharvest %s\n", config.Version)
		},
	}
}

// setupLogger creates a structured logger per the logging config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if target > 0 {
		cfg.Run.TargetEntries = target
	}
	if workers > 0 {
		cfg.Run.Workers = workers
	}
	if checkEvery > 0 {
		cfg.Run.CheckpointEvery = checkEvery
	}
	if maxPages > 0 {
		cfg.Run.MaxPages = maxPages
	}
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if fastMode {
		cfg.Politeness.Mode = "fast"
	}
	if cleanOnly {
		cfg.Run.CleanOnly = true
	}
	if resume {
		cfg.Run.Resume = true
	}
	if useBrowser {
		cfg.Fetcher.Type = "browser"
	}
}
