package repository

import (
	"context"
	"sync"

	"github.com/arslant84/vendori/internal/record"
)

// mutationKind distinguishes queued writes.
type mutationKind int

const (
	mutationUpsert mutationKind = iota + 1
	mutationRemove
	mutationRename
	mutationFlush
)

func (k mutationKind) String() string {
	switch k {
	case mutationUpsert:
		return "upsert"
	case mutationRemove:
		return "remove"
	case mutationRename:
		return "rename"
	case mutationFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// mutation is one queued write. done is buffered so the writer never blocks
// on a caller that stopped waiting.
type mutation struct {
	kind   mutationKind
	ctx    context.Context
	record record.VendorRecord
	key    string
	newKey string
	done   chan error
}

// mutationQueue is an unbounded FIFO of mutations.
//
// Enqueue may be called from any goroutine; the single writer goroutine
// drains it. The signal channel wakes the writer and is closed by Close so
// the writer can finish the backlog and exit.
type mutationQueue struct {
	mu     sync.Mutex
	items  []*mutation
	closed bool
	signal chan struct{}
}

func newMutationQueue() *mutationQueue {
	return &mutationQueue{
		items:  make([]*mutation, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends m. Returns false if the queue is closed.
func (q *mutationQueue) Enqueue(m *mutation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, m)

	// Non-blocking: a buffer of 1 coalesces wakeups.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue pops the front mutation without blocking.
func (q *mutationQueue) TryDequeue() (*mutation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	m := q.items[0]
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return m, true
}

// Wait returns a channel that fires when mutations may be available.
func (q *mutationQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and empty.
func (q *mutationQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// Len returns the number of queued mutations.
func (q *mutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting mutations. Already queued ones stay queued.
func (q *mutationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
