// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/backend-photoedit/internal/common"
)

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

var draining atomic.Bool

// SetReady toggles readiness. The server flips it off when shutdown begins so
// load balancers stop routing new requests while in-flight ones finish.
func SetReady(ready bool) { draining.Store(!ready) }

// IsReady reports whether the process accepts new traffic.
func IsReady() bool { return !draining.Load() }

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes the database and Redis concurrently.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !IsReady() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"})
		return
	}
	ctx := r.Context()
	var (
		wg              sync.WaitGroup
		dbErr, redisErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		dbErr = h.Checker.PingDB(ctx, orDefault(h.DBTimeout, 500*time.Millisecond))
	}()
	go func() {
		defer wg.Done()
		redisErr = h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, 300*time.Millisecond))
	}()
	wg.Wait()

	status := map[string]string{"db": probeStatus(dbErr), "redis": probeStatus(redisErr)}
	code := http.StatusOK
	if dbErr != nil || redisErr != nil {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func probeStatus(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
