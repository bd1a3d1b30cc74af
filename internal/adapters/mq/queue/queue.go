// Package queue holds pending standings recomputations.
//
// Jobs are keyed by scope. A scope that is already waiting is not queued a
// second time, since one recomputation reads every result recorded so far.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/cuerank/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Option tunes an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of scopes that may wait at once. Values
// below one keep the default.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n >= 1 {
			q.capacity = n
		}
	}
}

// Job asks for the standings of Scope to be rebuilt.
type Job struct {
	Scope      string
	Reason     string
	EnqueuedAt time.Time
	Attempt    int
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It reports whether the job was coalesced into one
	// already waiting for the same scope.
	Enqueue(ctx context.Context, j Job) (coalesced bool, err error)

	// Dequeue returns a channel that receives jobs until the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of waiting jobs.
	Len(ctx context.Context) int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel and a set of
// waiting scopes.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false, err
	}
	if _, ok := q.pending[j.Scope]; ok {
		return true, nil
	}
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now()
	}

	select {
	case q.jobs <- j:
		q.pending[j.Scope] = struct{}{}
		metrics.RecordQueueEnqueue()
		q.updateGauges()
		return false, nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false, ErrFull
	}
}

// Dequeue returns a channel of jobs. A scope may be enqueued again as soon
// as its job has been handed out.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			q.mu.Lock()
			delete(q.pending, j.Scope)
			q.updateGauges()
			q.mu.Unlock()

			select {
			case out <- j:
				metrics.RecordQueueDequeue()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close stops accepting jobs; consumers drain what is left.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// updateGauges must be called with mu held.
func (q *InMemoryQueue) updateGauges() {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
