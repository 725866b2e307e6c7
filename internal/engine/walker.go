package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/config"
	"github.com/Pjroelofsen/gradharvest/internal/fetcher"
	"github.com/Pjroelofsen/gradharvest/internal/parser"
	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// WalkResult is the terminal state of a listing walk.
type WalkResult int

const (
	// WalkDone: the page limit was reached.
	WalkDone WalkResult = iota
	// WalkExhausted: a page carried no entries; the listing ran dry.
	WalkExhausted
	// WalkPartial: three consecutive page failures ended the walk early.
	WalkPartial
	// WalkStopped: the run's stop signal (target met or interrupt) ended
	// the walk.
	WalkStopped
)

func (r WalkResult) String() string {
	switch r {
	case WalkDone:
		return "done"
	case WalkExhausted:
		return "exhausted"
	case WalkPartial:
		return "partial"
	case WalkStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// maxConsecutivePageFailures ends the walk early and reports the run as
// partially complete.
const maxConsecutivePageFailures = 3

// ListingWalker pages through the results listing strictly sequentially,
// extracting entry stubs until a target count or page limit is reached.
// Pagination is ordered and rate-limited by policy, never parallelized.
type ListingWalker struct {
	fetcher    fetcher.Fetcher
	parser     *parser.ListingParser
	frontier   *Frontier
	collector  *Collector
	site       config.SiteConfig
	politeness config.PolitenessConfig
	maxPages   int
	target     int
	backlog    int
	stats      *types.RunStats
	logger     *slog.Logger

	// pageCursor is the next unvisited page, read by checkpointing.
	pageCursor atomic.Int64
}

// NewListingWalker creates a walker that feeds the frontier.
func NewListingWalker(cfg *config.Config, f fetcher.Fetcher, p *parser.ListingParser, frontier *Frontier, collector *Collector, stats *types.RunStats, logger *slog.Logger) *ListingWalker {
	w := &ListingWalker{
		fetcher:    f,
		parser:     p,
		frontier:   frontier,
		collector:  collector,
		site:       cfg.Site,
		politeness: cfg.Politeness,
		maxPages:   cfg.Run.MaxPages,
		target:     cfg.Run.TargetEntries,
		stats:      stats,
		logger:     logger.With("component", "listing_walker"),
	}
	w.pageCursor.Store(1)
	return w
}

// SetStart positions the walker at a page cursor restored from a checkpoint.
func (w *ListingWalker) SetStart(page int) {
	if page > 0 {
		w.pageCursor.Store(int64(page))
	}
}

// SetTarget adjusts the number of records the walk still has to produce
// (reduced on resume by the records already committed).
func (w *ListingWalker) SetTarget(remaining int) {
	w.target = remaining
}

// SetBacklog records stubs restored into the frontier from a checkpoint;
// they count against the discovery budget as if this walk had enqueued
// them.
func (w *ListingWalker) SetBacklog(n int) {
	w.backlog = n
}

// PageCursor returns the next page the walker has not visited.
func (w *ListingWalker) PageCursor() int {
	return int(w.pageCursor.Load())
}

// Run drives the walk to one of its terminal states. The frontier is left
// open; closing it is the orchestrator's call once the result is known.
//
// Discovery is budgeted against committed records, not enqueued stubs:
// the walk pauses once enough stubs are out to cover the remaining
// target, and resumes when a failed or duplicate entry consumes one of
// them without producing a record. The walk therefore only ends at the
// page limit, at listing exhaustion, or on the stop signal.
func (w *ListingWalker) Run(ctx context.Context) (WalkResult, error) {
	enqueued := w.backlog
	consecutiveFailures := 0
	enqueuedIDs := make(map[int64]struct{})
	failedBase := w.stats.Failed.Load()
	dupBase := w.stats.Duplicates.Load()

	for {
		page := int(w.pageCursor.Load())
		if page > w.maxPages {
			w.logger.Info("page limit reached", "max_pages", w.maxPages, "enqueued", enqueued)
			return WalkDone, nil
		}
		for enqueued >= w.needed(failedBase, dupBase) {
			select {
			case <-ctx.Done():
				return WalkStopped, nil
			case <-time.After(20 * time.Millisecond):
			}
		}
		select {
		case <-ctx.Done():
			return WalkStopped, nil
		default:
		}

		pageURL := fmt.Sprintf("%s%s?page=%d", w.site.BaseURL, w.site.ListingPath, page)
		w.logger.Debug("fetching listing page", "page", page, "enqueued", enqueued)

		res, err := w.fetcher.Fetch(ctx, pageURL)
		w.stats.PagesWalked.Add(1)
		if err != nil {
			if ctx.Err() != nil {
				// Canceled mid-fetch. The cursor stays on this page so a
				// resumed run revisits it.
				return WalkStopped, nil
			}
			consecutiveFailures++
			w.stats.PageFailures.Add(1)
			w.logger.Warn("listing page failed",
				"page", page,
				"consecutive", consecutiveFailures,
				"error", err,
			)
			if consecutiveFailures >= maxConsecutivePageFailures {
				w.logger.Error("too many consecutive page failures, ending walk early")
				return WalkPartial, types.ErrWalkerExhausted
			}
			w.pageCursor.Add(1)
			w.politePause(ctx)
			continue
		}
		consecutiveFailures = 0

		stubs, err := w.parser.ExtractStubs(res.Body, pageURL)
		if err != nil {
			// A page without the expected structure is recorded like a
			// fetch failure; the walker advances.
			consecutiveFailures++
			w.stats.PageFailures.Add(1)
			w.logger.Warn("listing page unparsable", "page", page, "error", err)
			if consecutiveFailures >= maxConsecutivePageFailures {
				return WalkPartial, types.ErrWalkerExhausted
			}
			w.pageCursor.Add(1)
			w.politePause(ctx)
			continue
		}

		if len(stubs) == 0 {
			w.logger.Info("listing exhausted", "page", page, "enqueued", enqueued)
			return WalkExhausted, nil
		}

		// The whole page is enqueued even when it overshoots the budget:
		// advancing the cursor asserts that every stub on the page is
		// either committed, queued, or checkpointed.
		added := 0
		for _, stub := range stubs {
			if _, dup := enqueuedIDs[stub.ID]; dup {
				continue
			}
			if w.collector.Seen(stub.ID) {
				continue
			}
			enqueuedIDs[stub.ID] = struct{}{}
			w.frontier.Push(stub)
			enqueued++
			added++
		}
		w.logger.Debug("page walked", "page", page, "stubs", len(stubs), "added", added)

		w.pageCursor.Add(1)
		w.politePause(ctx)
	}
}

// needed is how many stubs must be discovered for the remaining target to
// stay reachable: every failed or duplicate commit since the walk began
// consumed a stub without yielding a record.
func (w *ListingWalker) needed(failedBase, dupBase int64) int {
	failed := int(w.stats.Failed.Load() - failedBase)
	dups := int(w.stats.Duplicates.Load() - dupBase)
	return w.target + failed + dups
}

// politePause enforces the mandated delay between listing-page requests.
// This is a constraint of the collection policy and must never be skipped.
func (w *ListingWalker) politePause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.politeness.PageDelay()):
	}
}
