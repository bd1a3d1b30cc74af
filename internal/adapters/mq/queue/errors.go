package queue

import (
	"errors"

	"github.com/okian/cuerank/internal/domain/errs"
)

// Sentinel errors reported by Enqueue.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errs.Newf("queue.enqueue", errs.ErrUnavailable, "queue full")
)
