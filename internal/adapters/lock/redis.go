package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cuerank/pkg/logger"
	"github.com/okian/cuerank/pkg/metrics"
)

const (
	DefaultTTL           = 30 * time.Second
	DefaultRetryAttempts = 20
	maxBackoff           = 2 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX with token-checked release.
type Redis struct {
	client     redis.UniversalClient
	instanceID string
	prefix     string
	ttl        time.Duration
	attempts   int
	backoff    time.Duration
	log        logger.Logger
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets how long a lease survives a crashed holder.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRetry sets the number of attempts and the initial backoff between them.
func WithRetry(attempts int, backoff time.Duration) RedisOption {
	return func(r *Redis) {
		if attempts > 0 {
			r.attempts = attempts
		}
		if backoff > 0 {
			r.backoff = backoff
		}
	}
}

// WithKeyPrefix namespaces lock keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) RedisOption {
	return func(r *Redis) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRedis returns a Locker using client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     client,
		instanceID: uuid.NewString(),
		prefix:     "cuerank:lock:",
		ttl:        DefaultTTL,
		attempts:   DefaultRetryAttempts,
		backoff:    50 * time.Millisecond,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	start := time.Now()
	lockKey := r.prefix + key
	token := fmt.Sprintf("%s:%s", r.instanceID, uuid.NewString())

	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		switch {
		case err != nil:
			lastErr = err
			r.log.Warn(ctx, "lock acquire failed",
				logger.String("key", lockKey), logger.Int("attempt", attempt+1), logger.Error(err))
		case ok:
			metrics.RecordLockWait(msSince(start))
			return r.release(lockKey, token), nil
		}

		select {
		case <-ctx.Done():
			metrics.RecordLockError()
			return nil, ErrLockTimeout
		case <-time.After(r.backoffFor(attempt)):
		}
	}

	metrics.RecordLockError()
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, lastErr)
	}
	return nil, ErrLockTimeout
}

func (r *Redis) release(lockKey, token string) Release {
	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.client, []string{lockKey}, token).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			metrics.RecordLockError()
			return fmt.Errorf("lock: release %s: %w", lockKey, err)
		}
		if n == 0 {
			return ErrLockNotHeld
		}
		return nil
	}
}

func (r *Redis) backoffFor(attempt int) time.Duration {
	d := r.backoff << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
