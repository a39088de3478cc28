package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/backend-photoedit/internal/audit"
	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/config"
	"github.com/noah-isme/backend-photoedit/internal/health"
	"github.com/noah-isme/backend-photoedit/internal/notify"
	"github.com/noah-isme/backend-photoedit/internal/obs"
	"github.com/noah-isme/backend-photoedit/internal/order"
	"github.com/noah-isme/backend-photoedit/internal/pricing"
	"github.com/noah-isme/backend-photoedit/internal/ratelimit"
)

func testRouter(t *testing.T, mutate func(*config.Config, *RouterDeps)) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := &config.Config{Obs: config.ObsConfig{EnablePrometheus: true}}
	deps := RouterDeps{
		Config:      cfg,
		Logger:      zerolog.Nop(),
		Metrics:     obs.NewHTTPMetrics("routertest", nil, reg),
		Gatherer:    reg,
		Health:      health.Handler{},
		Pricing:     &pricing.Handler{Currency: "USD"},
		Orders:      &order.Handler{},
		OrdersAdmin: &order.AdminHandler{},
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}
	return NewRouter(deps), reg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Code
}

func TestRouterServesCatalogAndQuotes(t *testing.T) {
	h, _ := testRouter(t, nil)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/services", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"standardEditing"`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"photoCount":20,"services":{"twilightConversion":true,"decluttering":true}}`))
	rr = serve(h, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"total":"144.16"`)
}

func TestRouterRequiresIdentityForOrders(t *testing.T) {
	h, _ := testRouter(t, nil)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, rr))

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/9f1c2b4e-8d5a-4c31-9a57-0f2d6f0b1a11/status", strings.NewReader(`{"status":"processing"}`))
	req.Header.Set(common.HeaderUserID, "customer-1")
	rr = serve(h, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, "FORBIDDEN", errorCode(t, rr))
}

type memAuditStore struct{ entries []audit.Entry }

func (s *memAuditStore) Insert(_ context.Context, e audit.Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func (s *memAuditStore) List(context.Context, audit.Filter, int, int) ([]audit.Entry, int, error) {
	return s.entries, len(s.entries), nil
}

func TestRouterAuditsAdminMutations(t *testing.T) {
	store := &memAuditStore{}
	h, _ := testRouter(t, func(_ *config.Config, d *RouterDeps) {
		d.Audit = audit.HTTPRecorder{Service: &audit.Service{Store: store, Enabled: true}}
		d.AuditLogs = audit.Handler{Store: store}
	})

	id := "9f1c2b4e-8d5a-4c31-9a57-0f2d6f0b1a11"
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/"+id+"/payment-status", strings.NewReader(`{"status":"processing"}`))
	req.Header.Set(common.HeaderUserID, "ops-1")
	req.Header.Set(common.HeaderUserRole, "admin")
	rr := serve(h, req)
	// no order service is wired in this router
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	require.Equal(t, "order.payment_status.update", e.Action)
	require.Equal(t, "order", e.ResourceType)
	require.Equal(t, id, *e.ResourceID)
	require.Equal(t, "ops-1", *e.ActorUserID)
	require.Equal(t, http.StatusInternalServerError, e.Status)

	list := httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs", nil)
	list.Header.Set(common.HeaderUserID, "ops-1")
	list.Header.Set(common.HeaderUserRole, "admin")
	rr = serve(h, list)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))
}

type memPrefStore map[string]notify.Preferences

func (m memPrefStore) Get(_ context.Context, userID string) (notify.Preferences, error) {
	if p, ok := m[userID]; ok {
		return p, nil
	}
	return notify.Defaults(userID), nil
}

func (m memPrefStore) Upsert(_ context.Context, p notify.Preferences) (notify.Preferences, error) {
	m[p.UserID] = p
	return p, nil
}

func TestRouterServesNotificationPreferences(t *testing.T) {
	store := memPrefStore{}
	h, _ := testRouter(t, func(_ *config.Config, d *RouterDeps) {
		d.Notifications = notify.Handler{Store: store}
	})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/me/notification-preferences", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	put := httptest.NewRequest(http.MethodPut, "/api/v1/me/notification-preferences", strings.NewReader(`{"marketing":true,"silentMode":true}`))
	put.Header.Set(common.HeaderUserID, "customer-1")
	rr = serve(h, put)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.True(t, store["customer-1"].Marketing)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/me/notification-preferences", nil)
	get.Header.Set(common.HeaderUserID, "customer-1")
	rr = serve(h, get)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"silentMode":true`)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v1/me/notification-preferences", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr = serve(h, preflight)
	require.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestRouterRateLimitsQuotes(t *testing.T) {
	h, _ := testRouter(t, func(_ *config.Config, d *RouterDeps) {
		lim, err := ratelimit.New(memory.NewStore(), "1-M")
		require.NoError(t, err)
		d.QuoteLimit = ratelimit.Handler{Limiter: lim, Scope: "quotes"}
	})

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"photoCount":1}`))
		req.RemoteAddr = "203.0.113.9:4000"
		return req
	}
	require.Equal(t, http.StatusOK, serve(h, newReq()).Code)
	rr := serve(h, newReq())
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "RATE_LIMITED", errorCode(t, rr))

	// the services listing is not limited
	require.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)).Code)
}

func TestRouterExposesMetricsAndHealth(t *testing.T) {
	h, _ := testRouter(t, nil)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())

	serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/services", nil))
	rr = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `routertest_http_requests_total{method="GET",route="/api/v1/services",status="200"} 1`)
}

func TestRouterMetricsDisabled(t *testing.T) {
	h, _ := testRouter(t, func(cfg *config.Config, _ *RouterDeps) {
		cfg.Obs.EnablePrometheus = false
	})
	rr := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterPprofBasicAuth(t *testing.T) {
	h, _ := testRouter(t, func(cfg *config.Config, _ *RouterDeps) {
		cfg.Obs.EnablePprof = true
		cfg.Obs.PprofUser = "ops"
		cfg.Obs.PprofPass = "secret"
	})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.SetBasicAuth("ops", "secret")
	rr = serve(h, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAllowedOriginsDefaultsToWildcard(t *testing.T) {
	require.Equal(t, []string{"*"}, allowedOrigins(&config.Config{}))
	require.Equal(t, []string{"https://app.example.com"}, allowedOrigins(&config.Config{CORSAllowedOrigins: []string{"https://app.example.com"}}))
}
