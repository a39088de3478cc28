// Package ratelimit throttles write-heavy endpoints per caller.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/resilience"
)

// NewRedisStore returns a limiter store that shares counters across replicas.
func NewRedisStore(client *redis.Client, prefix string) (limiter.Store, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix, MaxRetry: 3})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return store, nil
}

// New builds a limiter from a formatted rate such as "60-M" (60 per minute).
func New(store limiter.Store, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: rate %q: %w", formatted, err)
	}
	return limiter.New(store, rate), nil
}

// Handler enforces a limit before delegating to the next handler.
type Handler struct {
	Limiter *limiter.Limiter
	// Key derives the bucket for a request. Defaults to common.RateKey.
	Key func(*http.Request) string
	// Scope separates buckets of different endpoints sharing one store.
	Scope   string
	OnError func(error)
	// Breaker skips the store while it keeps failing. Optional.
	Breaker *resilience.Breaker
}

// Middleware implements chi middleware. Store failures let the request through.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil {
		return next
	}
	keyFn := h.Key
	if keyFn == nil {
		keyFn = common.RateKey
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lctx, err := h.get(r.Context(), h.Scope+":"+keyFn(r))
		if err != nil {
			if h.OnError != nil && !errors.Is(err, resilience.ErrOpenCircuit) {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := time.Until(time.Unix(lctx.Reset, 0)).Seconds()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(int(retryAfter+0.5)))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h Handler) get(ctx context.Context, key string) (limiter.Context, error) {
	if h.Breaker == nil {
		return h.Limiter.Get(ctx, key)
	}
	var lctx limiter.Context
	err := h.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		lctx, err = h.Limiter.Get(ctx, key)
		return err
	})
	return lctx, err
}
