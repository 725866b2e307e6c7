package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// Frontier is a thread-safe FIFO queue of entry stubs awaiting detail
// fetch. One producer (the listing walker), many consumers (the workers).
type Frontier struct {
	mu     sync.Mutex
	queue  []types.EntryStub
	closed bool
}

// NewFrontier creates a new Frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queue: make([]types.EntryStub, 0, 256),
	}
}

// Push adds a stub to the frontier. Pushes after Close are dropped.
func (f *Frontier) Push(stub types.EntryStub) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.queue = append(f.queue, stub)
}

// TryPop attempts a non-blocking dequeue. The second return is false when
// the queue is empty.
func (f *Frontier) TryPop() (types.EntryStub, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return types.EntryStub{}, false
	}
	stub := f.queue[0]
	f.queue = f.queue[1:]
	return stub, true
}

// Pop blocks until a stub is available, the frontier is closed and empty,
// or the context is done.
func (f *Frontier) Pop(ctx context.Context) (types.EntryStub, bool) {
	for {
		if stub, ok := f.TryPop(); ok {
			return stub, true
		}
		if f.IsClosed() {
			return types.EntryStub{}, false
		}
		// Poll with context support — no goroutine leak
		select {
		case <-ctx.Done():
			return types.EntryStub{}, false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Len returns the number of queued stubs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Close closes the frontier; waiting Pop calls drain the remainder and
// then return false.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// IsClosed returns true if the frontier has been closed.
func (f *Frontier) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Snapshot copies the queued stubs without removing them, for periodic
// checkpoints.
func (f *Frontier) Snapshot() []types.EntryStub {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.EntryStub, len(f.queue))
	copy(out, f.queue)
	return out
}

// Drain removes and returns all remaining stubs.
func (f *Frontier) Drain() []types.EntryStub {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.queue
	f.queue = nil
	return out
}
