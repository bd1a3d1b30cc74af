// Package lock serializes standings recomputation per scope. The local
// implementation covers a single process; the Redis one lets several
// replicas share a store.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/okian/cuerank/internal/domain/errs"
)

var (
	// ErrLockTimeout is returned when a lock could not be acquired before the
	// context or the retry budget ran out.
	ErrLockTimeout = errs.Newf("lock.acquire", errs.ErrUnavailable, "timeout acquiring lock")
	// ErrLockNotHeld is returned by Release when the lease expired or was taken over.
	ErrLockNotHeld = errors.New("lock: not held by this holder")
)

// Release gives the lock back.
type Release func(ctx context.Context) error

// Locker hands out exclusive leases keyed by name.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
