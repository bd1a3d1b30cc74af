package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cuerank/internal/domain/model"
	"github.com/okian/cuerank/pkg/metrics"
)

// MemoryStore keeps everything in process. Each scope's standings live behind
// an atomic pointer so readers never block on a recomputation.
type MemoryStore struct {
	mu          sync.RWMutex
	results     map[string][]model.MatchResult // scope -> rows
	tournaments map[string]struct{}
	snapshots   map[string]*atomic.Pointer[Snapshot]
	resultCount int

	now                   func() time.Time
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a store and starts its metrics updater, which
// stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		results:               make(map[string][]model.MatchResult),
		tournaments:           make(map[string]struct{}),
		snapshots:             make(map[string]*atomic.Pointer[Snapshot]),
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) AppendResults(_ context.Context, tournamentID string, results []model.MatchResult) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[tournamentID]; ok {
		return ErrDuplicateTournament
	}
	s.tournaments[tournamentID] = struct{}{}
	for _, r := range results {
		s.results[r.ScopeID] = append(s.results[r.ScopeID], r)
	}
	s.resultCount += len(results)
	return nil
}

func (s *MemoryStore) ListResults(_ context.Context, scope string) ([]model.MatchResult, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MatchResult, len(s.results[scope]))
	copy(out, s.results[scope])
	return out, nil
}

func (s *MemoryStore) snapshot(scope string) *Snapshot {
	s.mu.RLock()
	p, ok := s.snapshots[scope]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return p.Load()
}

func (s *MemoryStore) LoadStandings(_ context.Context, scope string) ([]model.Standing, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	snap := s.snapshot(scope)
	if snap == nil {
		return []model.Standing{}, nil
	}
	out := make([]model.Standing, len(snap.Rows))
	copy(out, snap.Rows)
	return out, nil
}

func (s *MemoryStore) ReplaceStandings(_ context.Context, scope string, rows []model.Standing) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	if err := checkSnapshot(scope, rows); err != nil {
		return err
	}
	next := newSnapshot(scope, rows, s.now())

	s.mu.Lock()
	p, ok := s.snapshots[scope]
	if !ok {
		p = &atomic.Pointer[Snapshot]{}
		s.snapshots[scope] = p
	}
	s.mu.Unlock()

	p.Store(next)
	metrics.IncrementRepositorySnapshotSwaps()
	return nil
}

func (s *MemoryStore) TopN(_ context.Context, scope string, n int) ([]model.Standing, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	snap := s.snapshot(scope)
	if snap == nil {
		return []model.Standing{}, nil
	}
	if n > len(snap.Rows) {
		n = len(snap.Rows)
	}
	out := make([]model.Standing, n)
	copy(out, snap.Rows[:n])
	return out, nil
}

func (s *MemoryStore) Standing(_ context.Context, scope, playerID string) (model.Standing, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	snap := s.snapshot(scope)
	if snap == nil {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Standing{}, ErrNotFound
	}
	i, ok := snap.byPlayer[playerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Standing{}, ErrNotFound
	}
	return snap.Rows[i], nil
}

func (s *MemoryStore) Scopes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	set := make(map[string]struct{}, len(s.results)+len(s.snapshots))
	for k := range s.results {
		set[k] = struct{}{}
	}
	for k := range s.snapshots {
		set[k] = struct{}{}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Close stops the background updater. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	results, scopes := s.resultCount, len(s.snapshots)
	s.mu.RUnlock()
	metrics.UpdateRepositoryResultsTotal(results)
	metrics.UpdateRepositoryScopesTotal(scopes)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
