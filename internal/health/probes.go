package health

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps probes the service's PostgreSQL pool and Redis client.
type Deps struct {
	DB    Pinger
	Redis redis.Cmdable
}

// PingDB implements Checker.
func (d Deps) PingDB(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.DB.Ping(ctx)
}

// PingRedis implements Checker.
func (d Deps) PingRedis(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}
