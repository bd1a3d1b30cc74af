package lock

import (
	"context"
	"sync"
	"time"

	"github.com/okian/cuerank/pkg/metrics"
)

// Local is an in-process Locker. Entries are reference counted and dropped
// once nobody holds or waits on them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

// NewLocal returns an empty in-process Locker.
func NewLocal() *Local {
	return &Local{entries: make(map[string]*localEntry)}
}

func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	start := time.Now()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		metrics.RecordLockError()
		return nil, ErrLockTimeout
	}
	metrics.RecordLockWait(msSince(start))

	var once sync.Once
	return func(context.Context) error {
		released := false
		once.Do(func() {
			<-e.sem
			l.unref(key, e)
			released = true
		})
		if !released {
			return ErrLockNotHeld
		}
		return nil
	}, nil
}

func (l *Local) unref(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
