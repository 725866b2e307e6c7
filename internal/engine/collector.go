package engine

import (
	"log/slog"
	"sync"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// Collector is the single logical owner of the seen-id set and the output
// buffers. All inserts happen on its one goroutine, so the duplicate check
// is atomic with record insertion without lock contention on the hot path.
type Collector struct {
	in     chan entryResult
	stats  *types.RunStats
	logger *slog.Logger

	target          int
	checkpointEvery int

	// onCheckpoint is invoked on the collector goroutine after every
	// checkpointEvery successful records.
	onCheckpoint func()

	mu      sync.RWMutex
	seen    map[int64]struct{}
	cleaned []types.CleanedRecord
	raw     []*types.RawEntryRecord

	targetOnce sync.Once
	targetCh   chan struct{}
	done       bool
}

// NewCollector creates a collector for the given target. The channel buffer
// decouples workers from checkpoint writes.
func NewCollector(target, checkpointEvery, workers int, stats *types.RunStats, logger *slog.Logger) *Collector {
	return &Collector{
		in:              make(chan entryResult, workers*4),
		stats:           stats,
		logger:          logger.With("component", "collector"),
		target:          target,
		checkpointEvery: checkpointEvery,
		seen:            make(map[int64]struct{}),
		targetCh:        make(chan struct{}),
	}
}

// In returns the channel workers emit results on.
func (c *Collector) In() chan<- entryResult { return c.in }

// CloseIn closes the result channel; Run returns once the channel drains.
// Must only be called after every worker has exited.
func (c *Collector) CloseIn() { close(c.in) }

// OnCheckpoint registers the checkpoint trigger.
func (c *Collector) OnCheckpoint(fn func()) { c.onCheckpoint = fn }

// TargetReached is closed once the target count of successfully processed
// entries has been committed.
func (c *Collector) TargetReached() <-chan struct{} { return c.targetCh }

// Seed restores state from a loaded checkpoint: committed ids, prior
// output, and prior counts. Must be called before Run.
func (c *Collector) Seed(seenIDs []int64, cleaned []types.CleanedRecord, succeeded, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range seenIDs {
		c.seen[id] = struct{}{}
	}
	c.cleaned = append(c.cleaned, cleaned...)
	c.stats.Succeeded.Store(int64(succeeded))
	c.stats.Failed.Store(int64(failed))
	if succeeded >= c.target {
		c.signalTarget()
	}
}

// Seen reports whether an entry id has already been committed. Used by the
// walker to keep already-processed ids out of the frontier on resume.
func (c *Collector) Seen(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.seen[id]
	return ok
}

// Run drains the result channel until it is closed. It is the only
// goroutine that mutates the seen set or the buffers.
func (c *Collector) Run() {
	sinceCheckpoint := 0

	for result := range c.in {
		if c.done {
			// Target already reached; late in-flight results are dropped.
			continue
		}

		id := result.raw.ID

		c.mu.Lock()
		if _, dup := c.seen[id]; dup {
			c.mu.Unlock()
			c.stats.Duplicates.Add(1)
			c.logger.Debug("duplicate entry dropped", "entry_id", id)
			continue
		}
		c.seen[id] = struct{}{}
		c.cleaned = append(c.cleaned, result.cleaned)
		c.raw = append(c.raw, result.raw)
		c.mu.Unlock()

		if result.raw.Failed {
			c.stats.Failed.Add(1)
			continue
		}

		// Only successfully fetched-and-parsed entries count toward the
		// target; failed entries are retained but do not satisfy it.
		succeeded := c.stats.Succeeded.Add(1)
		sinceCheckpoint++

		if c.onCheckpoint != nil && sinceCheckpoint >= c.checkpointEvery {
			sinceCheckpoint = 0
			c.onCheckpoint()
		}

		if int(succeeded) >= c.target {
			c.done = true
			c.signalTarget()
		}
	}
}

// Results returns the committed records. Safe after Run has returned, or
// under the collector's lock during checkpointing.
func (c *Collector) Results() ([]types.CleanedRecord, []*types.RawEntryRecord) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cleaned := make([]types.CleanedRecord, len(c.cleaned))
	copy(cleaned, c.cleaned)
	raw := make([]*types.RawEntryRecord, len(c.raw))
	copy(raw, c.raw)
	return cleaned, raw
}

// SeenIDs returns a snapshot of every committed id, for checkpointing.
func (c *Collector) SeenIDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int64, 0, len(c.seen))
	for id := range c.seen {
		ids = append(ids, id)
	}
	return ids
}

func (c *Collector) signalTarget() {
	c.targetOnce.Do(func() {
		close(c.targetCh)
	})
}
