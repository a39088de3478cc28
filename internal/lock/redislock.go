// Package lock serializes work on a single resource across API replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-photoedit/internal/resilience"
)

// ErrNotAcquired is returned when the lock could not be taken before the context ended.
var ErrNotAcquired = errors.New("lock: not acquired")

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker provides a Redis-backed mutex keyed by resource name. Each holder
// writes a random token so only the holder can release the key.
type Locker struct {
	R            redis.Cmdable
	Prefix       string
	TTL          time.Duration
	RetryBackoff time.Duration
}

// WithLock runs fn while holding the lock for key. The lock is released when fn
// returns, whatever its result. The context passed to fn is cancelled once the
// lock TTL elapses so fn cannot outlive its lease.
func (l Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	name := l.Prefix + key
	token := uuid.NewString()

	for attempt := 1; ; attempt++ {
		ok, err := l.R.SetNX(ctx, name, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("lock: acquire %s: %w", name, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrNotAcquired, name, ctx.Err())
		case <-time.After(resilience.Backoff(retry, 16*retry, attempt, 0.2)):
		}
	}
	defer func() {
		_ = releaseScript.Run(context.Background(), l.R, []string{name}, token).Err()
	}()

	leaseCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	return fn(leaseCtx)
}
