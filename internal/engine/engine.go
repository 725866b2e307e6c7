package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/config"
	"github.com/Pjroelofsen/gradharvest/internal/extract"
	"github.com/Pjroelofsen/gradharvest/internal/fetcher"
	"github.com/Pjroelofsen/gradharvest/internal/parser"
	"github.com/Pjroelofsen/gradharvest/internal/storage"
	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// Report summarizes a finished run.
type Report struct {
	Attempted   int64
	Succeeded   int64
	Failed      int64
	Duplicates  int64
	PagesWalked int64
	Records     int
	Duration    time.Duration

	// Partial is set when the walker gave up on pagination before the
	// target was met (consecutive page failures or pagination exhausted).
	Partial bool

	// Interrupted is set when the run was cut short by a signal; a
	// checkpoint was saved and the run can be resumed.
	Interrupted bool
}

// Engine wires the walker, worker pool, and collector into a run. The
// walker discovers entry stubs sequentially; workers fetch and normalize
// them concurrently; the collector commits results and decides when the
// target is met.
type Engine struct {
	cfg         *config.Config
	fetcher     fetcher.Fetcher
	store       storage.Storage
	checkpoints *CheckpointStore
	stats       *types.RunStats

	frontier  *Frontier
	collector *Collector

	logger *slog.Logger
}

// New creates an Engine. The fetcher and storage backend are injected so
// the command layer decides between HTTP and browser fetching, and between
// file and database output.
func New(cfg *config.Config, f fetcher.Fetcher, store storage.Storage, logger *slog.Logger) *Engine {
	stats := types.NewRunStats()
	return &Engine{
		cfg:         cfg,
		fetcher:     f,
		store:       store,
		checkpoints: NewCheckpointStore(cfg.Run.CheckpointDir, logger),
		stats:       stats,
		frontier:    NewFrontier(),
		collector:   NewCollector(cfg.Run.TargetEntries, cfg.Run.CheckpointEvery, cfg.Run.Workers, stats, logger),
		logger:      logger.With("component", "engine"),
	}
}

// Stats exposes the run counters, for the metrics endpoint.
func (e *Engine) Stats() *types.RunStats { return e.stats }

// QueueDepth reports the current frontier depth, for the metrics endpoint.
func (e *Engine) QueueDepth() int { return e.frontier.Len() }

// Run executes the collection to completion, target, or interruption.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	if e.cfg.Run.CleanOnly {
		return e.runCleanOnly()
	}

	walker := NewListingWalker(e.cfg, e.fetcher, parser.NewListingParser(e.logger), e.frontier, e.collector, e.stats, e.logger)

	if err := e.maybeResume(walker); err != nil {
		return nil, err
	}

	e.collector.OnCheckpoint(func() {
		if err := e.saveCheckpoint(walker, e.frontier.Snapshot()); err != nil {
			e.logger.Error("checkpoint save failed", "error", err)
		}
	})

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		e.collector.Run()
	}()

	pool := NewWorkerPool(e.cfg, e.fetcher, parser.NewDetailParser(e.logger), e.frontier, e.collector.In(), e.stats, e.logger)
	pool.Start(ctx)

	// The walker gets its own cancel so reaching the target stops
	// pagination without cutting off in-flight detail fetches.
	walkCtx, walkCancel := context.WithCancel(ctx)
	defer walkCancel()

	walkDone := make(chan walkOutcome, 1)
	go func() {
		result, err := walker.Run(walkCtx)
		walkDone <- walkOutcome{result, err}
	}()

	report := &Report{}
	interrupted := false

	select {
	case <-e.collector.TargetReached():
		e.logger.Info("target reached, stopping discovery")
		walkCancel()
		<-walkDone
	case outcome := <-walkDone:
		switch outcome.result {
		case WalkPartial:
			e.logger.Warn("pagination abandoned early", "error", outcome.err)
		case WalkExhausted:
			e.logger.Warn("pagination exhausted before target")
		}
	case <-ctx.Done():
		interrupted = true
		e.logger.Info("interrupt received, shutting down")
		<-walkDone
	}

	// Let workers finish whatever is queued (or bail on ctx), then close
	// the result channel so the collector can drain and exit.
	e.frontier.Close()
	if ctx.Err() != nil && !e.targetMet() {
		interrupted = true
	}
	var pending []types.EntryStub
	if interrupted || e.targetMet() {
		pending = e.frontier.Drain()
	}
	pool.Wait()
	e.collector.CloseIn()
	<-collectorDone

	// Cancellation can also land while the workers drain the queue, after
	// the walker has already finished. Without this check such a run would
	// pass for a normal completion and lose its checkpoint.
	if !interrupted && ctx.Err() != nil && !e.targetMet() {
		interrupted = true
		pending = e.frontier.Drain()
	}

	// A late target signal outranks cancellation: the run is complete.
	if interrupted && e.targetMet() {
		interrupted = false
	}

	cleaned, raw := e.collector.Results()

	if interrupted {
		pending = append(pending, pool.Unfinished()...)
		if err := e.saveCheckpoint(walker, pending); err != nil {
			e.logger.Error("final checkpoint save failed", "error", err)
		}
		report.Interrupted = true
	} else if !e.targetMet() {
		// Fewer records committed than asked for, whatever the reason;
		// never pass that off as a complete run.
		report.Partial = true
		e.logger.Warn("run ended below target",
			"succeeded", e.stats.Succeeded.Load(),
			"target", e.cfg.Run.TargetEntries)
	}

	if err := e.flush(cleaned, raw); err != nil {
		return nil, err
	}

	if !interrupted {
		if err := e.checkpoints.Clean(); err != nil {
			e.logger.Warn("checkpoint cleanup failed", "error", err)
		}
	}

	e.fillReport(report, len(cleaned))
	e.logSummary(cleaned)
	e.logger.Info("run finished", "stats", e.stats.Snapshot())
	return report, nil
}

type walkOutcome struct {
	result WalkResult
	err    error
}

// targetMet reports whether the collector has committed the target count.
func (e *Engine) targetMet() bool {
	select {
	case <-e.collector.TargetReached():
		return true
	default:
		return false
	}
}

// runCleanOnly reprocesses an existing raw JSONL file through the
// extraction pipeline without touching the network. Useful after an
// extractor fix: the expensive fetch phase is not repeated.
func (e *Engine) runCleanOnly() (*Report, error) {
	start := time.Now()
	e.logger.Info("clean-only run", "raw_path", e.cfg.Storage.RawPath)

	f, err := os.Open(e.cfg.Storage.RawPath)
	if err != nil {
		return nil, fmt.Errorf("opening raw records: %w", err)
	}
	defer f.Close()

	var cleaned []types.CleanedRecord
	dec := json.NewDecoder(f)
	for {
		var raw types.RawEntryRecord
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decoding raw record: %w", err)
		}
		cleaned = append(cleaned, extract.Apply(&raw))
	}

	if err := e.store.StoreCleaned(cleaned); err != nil {
		return nil, fmt.Errorf("storing cleaned records: %w", err)
	}
	if err := e.store.Close(); err != nil {
		return nil, fmt.Errorf("closing storage: %w", err)
	}

	e.logSummary(cleaned)
	return &Report{
		Succeeded: int64(len(cleaned)),
		Records:   len(cleaned),
		Duration:  time.Since(start),
	}, nil
}

// maybeResume loads checkpoint state when resume is requested. A corrupt
// checkpoint aborts the run rather than silently starting over.
func (e *Engine) maybeResume(walker *ListingWalker) error {
	if !e.cfg.Run.Resume {
		return nil
	}

	cp, cleaned, err := e.checkpoints.LoadLatest()
	if err != nil {
		return fmt.Errorf("loading checkpoint: %w", err)
	}
	if cp == nil {
		e.logger.Info("no checkpoint found, starting fresh")
		return nil
	}

	e.collector.Seed(cp.SeenIDs, cleaned, cp.SucceededCount, cp.FailedCount)
	walker.SetStart(cp.PageCursor)

	// Stubs that were in flight at checkpoint time go straight back into
	// the frontier; their listing pages are behind the cursor and will
	// not be walked again.
	for _, stub := range cp.PendingStubs {
		e.frontier.Push(stub)
	}
	walker.SetBacklog(len(cp.PendingStubs))

	remaining := e.cfg.Run.TargetEntries - cp.SucceededCount
	if remaining < 0 {
		remaining = 0
	}
	walker.SetTarget(remaining)

	e.logger.Info("resuming from checkpoint",
		"page_cursor", cp.PageCursor,
		"succeeded", cp.SucceededCount,
		"failed", cp.FailedCount,
		"pending", len(cp.PendingStubs),
		"remaining", remaining,
		"saved_at", cp.LastSavedAt)
	return nil
}

func (e *Engine) saveCheckpoint(walker *ListingWalker, pending []types.EntryStub) error {
	cleaned, _ := e.collector.Results()
	cp := &types.Checkpoint{
		PageCursor:     walker.PageCursor(),
		SeenIDs:        e.collector.SeenIDs(),
		PendingStubs:   pending,
		SucceededCount: int(e.stats.Succeeded.Load()),
		FailedCount:    int(e.stats.Failed.Load()),
	}
	return e.checkpoints.Save(cp, cleaned)
}

// flush writes the final output. A storage failure here is fatal: the run's
// purpose is the output file.
func (e *Engine) flush(cleaned []types.CleanedRecord, raw []*types.RawEntryRecord) error {
	if err := e.store.StoreRaw(raw); err != nil {
		return fmt.Errorf("storing raw records: %w", err)
	}
	if err := e.store.StoreCleaned(cleaned); err != nil {
		return fmt.Errorf("storing cleaned records: %w", err)
	}
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("closing storage: %w", err)
	}
	return nil
}

func (e *Engine) fillReport(r *Report, records int) {
	r.Attempted = e.stats.Attempted.Load()
	r.Succeeded = e.stats.Succeeded.Load()
	r.Failed = e.stats.Failed.Load()
	r.Duplicates = e.stats.Duplicates.Load()
	r.PagesWalked = e.stats.PagesWalked.Load()
	r.Records = records
	r.Duration = time.Since(e.stats.StartTime)
}

// logSummary reports field coverage and decision distribution for the
// collected records.
func (e *Engine) logSummary(cleaned []types.CleanedRecord) {
	if len(cleaned) == 0 {
		e.logger.Info("no records collected")
		return
	}

	var program, institution, gpa, gre, term, dateAdded int
	decisions := make(map[string]int)
	for _, rec := range cleaned {
		if rec.Program != nil {
			program++
		}
		if rec.Institution != nil {
			institution++
		}
		if rec.GPA != nil {
			gpa++
		}
		if rec.GRETotal != nil {
			gre++
		}
		if rec.Term != nil {
			term++
		}
		if rec.DateAdded != nil {
			dateAdded++
		}
		if rec.Status != nil {
			decisions[string(*rec.Status)]++
		} else {
			decisions["unknown"]++
		}
	}

	pct := func(n int) string {
		return fmt.Sprintf("%.1f%%", float64(n)*100/float64(len(cleaned)))
	}

	e.logger.Info("field coverage",
		"records", len(cleaned),
		"program", pct(program),
		"institution", pct(institution),
		"gpa", pct(gpa),
		"gre_total", pct(gre),
		"term", pct(term),
		"date_added", pct(dateAdded))

	args := make([]any, 0, len(decisions)*2)
	for status, n := range decisions {
		args = append(args, status, n)
	}
	e.logger.Info("decision distribution", args...)
}
