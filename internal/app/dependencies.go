// Package app builds the process-wide dependencies shared by the HTTP server and tools.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-photoedit/internal/config"
	"github.com/noah-isme/backend-photoedit/internal/db"
	"github.com/noah-isme/backend-photoedit/internal/obs"
	"github.com/noah-isme/backend-photoedit/internal/ratelimit"
)

// Dependencies enumerates the connections and registries owned by the process.
type Dependencies struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	LimiterStore limiter.Store
	Registry     prometheus.Registerer
	Gatherer     prometheus.Gatherer

	closers []func(context.Context) error
}

// Build connects to PostgreSQL and Redis, runs migrations when configured and
// starts tracing. Call Close to release everything Build opened.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Registry: prometheus.DefaultRegisterer, Gatherer: prometheus.DefaultGatherer}

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.Obs.EnableTracing,
		ServiceName:   "photoedit-api",
		Endpoint:      cfg.Obs.OTLPEndpoint,
		SamplingRatio: cfg.Obs.SamplingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		deps.closers = append(deps.closers, shutdownTracer)
	}

	pool, err := db.Connect(ctx, db.PoolOptions{
		URL:             cfg.DatabaseURL,
		ApplicationName: "photoedit-api",
		Tracer:          obs.PGXTracer{Logger: logger, SlowQuery: cfg.Obs.SlowQuery},
	})
	if err != nil {
		_ = deps.Close(context.Background())
		return nil, err
	}
	deps.DB = pool
	deps.closers = append(deps.closers, func(context.Context) error { pool.Close(); return nil })

	if cfg.MigrateOnStart {
		if err := db.Migrate(pool); err != nil {
			_ = deps.Close(context.Background())
			return nil, err
		}
		logger.Info().Msg("database migrations applied")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = deps.Close(context.Background())
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	deps.Redis = client
	deps.closers = append(deps.closers, func(context.Context) error { return client.Close() })
	if cfg.Obs.EnableTracing {
		if err := obs.InstrumentRedis(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = deps.Close(context.Background())
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	store, err := ratelimit.NewRedisStore(client, "photoedit:ratelimit")
	if err != nil {
		_ = deps.Close(context.Background())
		return nil, err
	}
	deps.LimiterStore = store
	return deps, nil
}

// Close releases dependencies in reverse order of creation.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
