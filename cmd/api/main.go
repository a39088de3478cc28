package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/noah-isme/backend-photoedit/internal/app"
	"github.com/noah-isme/backend-photoedit/internal/audit"
	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/config"
	"github.com/noah-isme/backend-photoedit/internal/events"
	"github.com/noah-isme/backend-photoedit/internal/health"
	"github.com/noah-isme/backend-photoedit/internal/lock"
	"github.com/noah-isme/backend-photoedit/internal/notify"
	"github.com/noah-isme/backend-photoedit/internal/obs"
	"github.com/noah-isme/backend-photoedit/internal/order"
	"github.com/noah-isme/backend-photoedit/internal/pricing"
	"github.com/noah-isme/backend-photoedit/internal/ratelimit"
	"github.com/noah-isme/backend-photoedit/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	resilience.MustRegisterMetrics(cfg.Obs.MetricsNamespace, nil)

	catalog, err := cfg.Catalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("load price catalog")
	}
	engine, err := pricing.NewEngine(catalog, pricing.DefaultTiers())
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise pricing engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Build(bootCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}

	eventStore := events.PgStore{DB: deps.DB}
	prefStore := notify.PgStore{DB: deps.DB}
	delivery := notify.LogSender{Logger: logger.With().Str("component", "notify").Logger()}
	bus := &events.Bus{
		Store: eventStore,
		Notifiers: []events.Notifier{
			events.LogNotifier{Logger: logger},
			notify.Dispatcher{
				Prefs: prefStore,
				Senders: map[notify.Channel]notify.Sender{
					notify.ChannelInApp: delivery,
					notify.ChannelEmail: delivery,
					notify.ChannelPush:  delivery,
				},
				Logger: logger,
			},
		},
	}
	orderSvc := &order.Service{
		Store:    order.PgStore{DB: deps.DB},
		Engine:   engine,
		Locker:   &lock.Locker{R: deps.Redis, Prefix: "lock:order:", TTL: cfg.OrderLockTTL},
		Events:   bus,
		History:  eventStore,
		Currency: cfg.CurrencyCode,
		Logger:   logger,
	}

	auditStore := audit.PgStore{DB: deps.DB}
	auditSvc := &audit.Service{Store: auditStore, Enabled: cfg.AuditEnabled, SamplingRate: cfg.AuditSamplingRate}

	limitBreaker := resilience.NewBreaker(5, 0.5, 15*time.Second).WithTarget("ratelimit_store").WithLogger(logger)

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.EnablePrometheus {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, nil, deps.Registry)
	}

	router := app.NewRouter(app.RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  httpMetrics,
		Gatherer: deps.Gatherer,
		Health: health.Handler{
			Checker:      health.Deps{DB: deps.DB, Redis: deps.Redis},
			DBTimeout:    500 * time.Millisecond,
			RedisTimeout: 300 * time.Millisecond,
		},
		Pricing:       &pricing.Handler{Engine: engine, Currency: cfg.CurrencyCode},
		Orders:        &order.Handler{Svc: orderSvc},
		OrdersAdmin:   &order.AdminHandler{Svc: orderSvc},
		Notifications: notify.Handler{Store: prefStore},
		Audit: audit.HTTPRecorder{
			Service: auditSvc,
			OnError: func(err error) { logger.Error().Err(err).Msg("record audit log") },
		},
		AuditLogs:     audit.Handler{Store: auditStore},
		Idem:          common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL},
		QuoteLimit:    limitHandler(deps, cfg.RateLimitQuotes, "quotes", limitBreaker, logger),
		OrderLimit:    limitHandler(deps, cfg.RateLimitOrders, "orders", limitBreaker, logger),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown http server")
	}
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("close dependencies")
	}
	logger.Info().Msg("server stopped")
}

func limitHandler(deps *app.Dependencies, rate, scope string, breaker *resilience.Breaker, logger zerolog.Logger) ratelimit.Handler {
	lim, err := ratelimit.New(deps.LimiterStore, rate)
	if err != nil {
		logger.Fatal().Err(err).Str("scope", scope).Msg("configure rate limit")
	}
	return ratelimit.Handler{
		Limiter: lim,
		Scope:   scope,
		Breaker: breaker,
		OnError: func(err error) {
			logger.Warn().Err(err).Str("scope", scope).Msg("rate limit store unavailable")
		},
	}
}
