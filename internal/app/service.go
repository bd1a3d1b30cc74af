// Package service wires the ranking engine together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/cuerank/internal/adapters/lock"
	"github.com/okian/cuerank/internal/adapters/mq/queue"
	"github.com/okian/cuerank/internal/adapters/mq/worker"
	"github.com/okian/cuerank/internal/adapters/repository"
	"github.com/okian/cuerank/internal/domain/challenge"
	"github.com/okian/cuerank/internal/domain/dedupe"
	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/placement"
	"github.com/okian/cuerank/internal/domain/recommend"
	"github.com/okian/cuerank/internal/domain/tiers"
	"github.com/okian/cuerank/pkg/logger"
	"github.com/okian/cuerank/pkg/metrics"
)

const (
	defaultQueueSize        = 10000
	defaultDedupeSize       = 50000
	defaultRecomputeTimeout = 10 * time.Second
	defaultMaxLimit         = 500
	defaultMaxRetries       = 3
	defaultRetryBackoff     = 100 * time.Millisecond
)

// Service is the ranking engine facade.
type Service struct {
	mu sync.RWMutex

	// Reference data, fixed after New.
	table     *tiers.Table
	weights   recommend.Weights
	resolver  *challenge.Resolver
	allocator *placement.Allocator
	scorer    *recommend.Scorer

	// Adapters
	store   repository.Store
	locker  lock.Locker
	deduper dedupe.Deduper
	queue   queue.Queue
	pool    *worker.Pool

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	recomputeTimeout time.Duration
	maxLimit         int
	maxRetries       int
	retryBackoff     time.Duration
	now              func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service. It fails with a configuration error when the
// tier table or the recommendation weights do not hold their invariants.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		table:            tiers.Default(),
		weights:          recommend.DefaultWeights(),
		locker:           lock.NewLocal(),
		workerCount:      runtime.NumCPU(),
		queueSize:        defaultQueueSize,
		dedupeSize:       defaultDedupeSize,
		recomputeTimeout: defaultRecomputeTimeout,
		maxLimit:         defaultMaxLimit,
		maxRetries:       defaultMaxRetries,
		retryBackoff:     defaultRetryBackoff,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	var err error
	if s.resolver, err = challenge.NewResolver(s.table); err != nil {
		return nil, errs.Wrap("service.new", err)
	}
	if s.allocator, err = placement.NewAllocator(s.table); err != nil {
		return nil, errs.Wrap("service.new", err)
	}
	if s.scorer, err = recommend.NewScorer(s.weights); err != nil {
		return nil, errs.Wrap("service.new", err)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s, nil
}

// Start creates the default store when none was given and starts the
// recompute workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting ranking service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.queue = q
	s.pool = worker.NewPool(s.workerCount, q, s,
		worker.WithRetry(s.maxRetries, s.retryBackoff),
		worker.WithJobTimeout(s.recomputeTimeout),
		worker.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("tierTable", s.table.Version),
		logger.String("weights", s.weights.Version),
	)
	return nil
}

// Stop drains pending recomputations and closes the store.
func (s *Service) Stop() {
	ctx := context.Background()

	s.mu.Lock()
	if !s.started || s.pool == nil {
		s.mu.Unlock()
		return
	}
	s.logger.Info(ctx, "stopping ranking service...")
	pool := s.pool
	s.pool = nil
	s.mu.Unlock()

	// Workers still need the store while they drain the queue.
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// components returns the adapters in use, or an unavailable error before Start.
func (s *Service) components(op string) (repository.Store, queue.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, errs.Newf(op, errs.ErrUnavailable, "service not started")
	}
	return s.store, s.queue, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"dedupeSize":       s.dedupeSize,
		"finalizedTracked": s.deduper.Size(),
		"tierTable":        s.table.Version,
		"weights":          s.weights.Version,
	}

	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		if s.pool != nil {
			stats["workers"] = s.pool.Stats()
		}
		if scopes, err := s.store.Scopes(ctx); err == nil {
			stats["scopes"] = len(scopes)
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		metrics.UpdateSystemMemoryUsage(mem.Alloc)
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	}
	return stats
}
