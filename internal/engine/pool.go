package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/config"
	"github.com/Pjroelofsen/gradharvest/internal/extract"
	"github.com/Pjroelofsen/gradharvest/internal/fetcher"
	"github.com/Pjroelofsen/gradharvest/internal/parser"
	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// entryResult pairs a raw record with its cleaned form, produced by one
// worker for one stub.
type entryResult struct {
	raw     *types.RawEntryRecord
	cleaned types.CleanedRecord
}

// WorkerPool is a fixed-size set of workers draining the frontier. Workers
// are symmetric and stateless between stubs; the only cross-worker
// coordination is the shared queue and the collector channel.
type WorkerPool struct {
	workers    int
	frontier   *Frontier
	fetcher    fetcher.Fetcher
	parser     *parser.DetailParser
	out        chan<- entryResult
	politeness config.PolitenessConfig
	stats      *types.RunStats
	logger     *slog.Logger
	wg         sync.WaitGroup

	mu         sync.Mutex
	unfinished []types.EntryStub
}

// NewWorkerPool creates a pool of cfg.Run.Workers workers.
func NewWorkerPool(cfg *config.Config, f fetcher.Fetcher, p *parser.DetailParser, frontier *Frontier, out chan<- entryResult, stats *types.RunStats, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{
		workers:    cfg.Run.Workers,
		frontier:   frontier,
		fetcher:    f,
		parser:     p,
		out:        out,
		politeness: cfg.Politeness,
		stats:      stats,
		logger:     logger.With("component", "worker_pool"),
	}
}

// Start launches the workers.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("starting worker pool", "workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Wait blocks until all workers have exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Unfinished returns stubs that were popped but never processed because
// the run was canceled. They belong in the interrupt checkpoint; call
// after Wait.
func (p *WorkerPool) Unfinished() []types.EntryStub {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EntryStub, len(p.unfinished))
	copy(out, p.unfinished)
	return out
}

func (p *WorkerPool) abandon(stub types.EntryStub) {
	p.mu.Lock()
	p.unfinished = append(p.unfinished, stub)
	p.mu.Unlock()
}

// worker is a single detail-fetch worker goroutine. It exits when the
// frontier is closed and drained, or when the stop signal is observed at
// the top of the loop; an in-flight fetch finishes within its own timeout.
func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With("worker_id", id)

	for {
		stub, ok := p.frontier.TryPop()
		if !ok {
			if p.frontier.IsClosed() {
				logger.Debug("frontier closed, worker exiting")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		select {
		case <-ctx.Done():
			p.abandon(stub)
			return
		default:
		}

		p.process(ctx, logger, stub)
	}
}

// process fetches one detail page and emits exactly one result, or
// abandons the stub when cancellation cuts it short. Exhausted retries
// produce a failed record instead of an error; one bad entry never
// terminates the batch.
func (p *WorkerPool) process(ctx context.Context, logger *slog.Logger, stub types.EntryStub) {
	// Politeness pause before the detail fetch.
	select {
	case <-ctx.Done():
		p.abandon(stub)
		return
	case <-time.After(p.politeness.EntryDelay()):
	}

	p.stats.Attempted.Add(1)

	var raw *types.RawEntryRecord
	res, err := p.fetcher.Fetch(ctx, stub.URL)
	if err != nil {
		if ctx.Err() != nil {
			// The fetch lost to cancellation, not to the site. Committing
			// a failed record here would poison a resumed run, which must
			// refetch this entry.
			p.abandon(stub)
			return
		}
		logger.Warn("entry fetch failed permanently", "entry_id", stub.ID, "error", err)
		raw = types.NewFailedRecord(stub, err)
	} else {
		raw = p.parser.ParseDetail(res.Body, stub)
	}

	// The collector keeps draining until every worker has exited, so this
	// send cannot block indefinitely.
	p.out <- entryResult{raw: raw, cleaned: extract.Apply(raw)}
}
