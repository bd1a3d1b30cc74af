// Package worker runs queued standings recomputations.
package worker

import (
	"time"

	"github.com/okian/cuerank/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRetry sets how often a retryable failure is attempted again and the
// initial pause between attempts. The pause doubles each time.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(w *InMemoryWorker) {
		if maxRetries >= 0 {
			w.maxRetries = maxRetries
		}
		if backoff > 0 {
			w.backoff = backoff
		}
	}
}

// WithJobTimeout bounds a single recomputation attempt.
func WithJobTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.jobTimeout = d
		}
	}
}
