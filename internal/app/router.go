package app

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-photoedit/internal/audit"
	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/config"
	"github.com/noah-isme/backend-photoedit/internal/health"
	"github.com/noah-isme/backend-photoedit/internal/notify"
	"github.com/noah-isme/backend-photoedit/internal/obs"
	"github.com/noah-isme/backend-photoedit/internal/order"
	"github.com/noah-isme/backend-photoedit/internal/pricing"
	"github.com/noah-isme/backend-photoedit/internal/ratelimit"
	"github.com/noah-isme/backend-photoedit/internal/security"
)

// RouterDeps collects the handlers and middleware mounted by NewRouter.
type RouterDeps struct {
	Config        *config.Config
	Logger        zerolog.Logger
	Metrics       *obs.HTTPMetrics
	Gatherer      prometheus.Gatherer
	Health        health.Handler
	Pricing       *pricing.Handler
	Orders        *order.Handler
	OrdersAdmin   *order.AdminHandler
	Notifications notify.Handler
	Audit         audit.HTTPRecorder
	AuditLogs     audit.Handler
	Idem          common.Idem
	QuoteLimit    ratelimit.Handler
	OrderLimit    ratelimit.Handler
}

// NewRouter assembles the public HTTP surface.
func NewRouter(d RouterDeps) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(common.GatewayIdentity)
	if cfg.Obs.EnableTracing {
		r.Use(obs.Tracing("photoedit-api"))
	}
	if d.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", common.HeaderIdempotencyKey},
		ExposedHeaders:   []string{"Location", "X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)

	if cfg.Obs.EnablePrometheus {
		gatherer := d.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.Obs.EnablePprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/services", d.Pricing.ListServices)
		v.With(d.QuoteLimit.Middleware).Post("/quotes", d.Pricing.CreateQuote)

		v.Group(func(authR chi.Router) {
			authR.Use(common.RequireUser)
			authR.With(d.OrderLimit.Middleware, d.Idem.Middleware).Post("/orders", d.Orders.Submit)
			authR.Get("/orders", d.Orders.List)
			authR.Get("/orders/{orderId}", d.Orders.Get)
			authR.With(d.Idem.Middleware).Post("/orders/{orderId}/revisions", d.Orders.RequestRevision)
			authR.Get("/orders/{orderId}/revisions", d.Orders.ListRevisions)
			authR.Get("/orders/{orderId}/events", d.Orders.Timeline)
			authR.Get("/me/notification-preferences", d.Notifications.Get)
			authR.Put("/me/notification-preferences", d.Notifications.Put)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(common.RequireUser)
			admin.Use(common.RequireRole(common.RoleAdmin))
			admin.Get("/audit-logs", d.AuditLogs.List)
			admin.With(d.Audit.Middleware(audit.HTTPConfig{
				Action:          "order.status.update",
				ResourceType:    "order",
				ResourceIDParam: "id",
			})).Patch("/orders/{id}/status", d.OrdersAdmin.PatchStatus)
			admin.With(d.Audit.Middleware(audit.HTTPConfig{
				Action:          "order.payment_status.update",
				ResourceType:    "order",
				ResourceIDParam: "id",
			})).Patch("/orders/{id}/payment-status", d.OrdersAdmin.PatchPaymentStatus)
		})
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
