package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/backend-photoedit/internal/resilience"
)

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	lim, err := New(memory.NewStore(), "1-M")
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	handler := Handler{Limiter: lim, Scope: "orders"}

	counted := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.RemoteAddr = "198.51.100.4:5555"
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on second request, got %d", rr2.Code)
	}
	if rr2.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("unexpected limit header: %q", rr2.Header().Get("X-RateLimit-Limit"))
	}
	if rr2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	other := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	other.RemoteAddr = "198.51.100.5:5555"
	rr3 := httptest.NewRecorder()
	counted.ServeHTTP(rr3, other)
	if rr3.Code != http.StatusOK {
		t.Fatalf("expected separate bucket per client, got %d", rr3.Code)
	}
}

func TestNewRejectsBadRate(t *testing.T) {
	if _, err := New(memory.NewStore(), "lots"); err == nil {
		t.Fatalf("expected error for malformed rate")
	}
}

func TestNilLimiterPassesThrough(t *testing.T) {
	h := Handler{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected pass through, got %d", rr.Code)
	}
}

type failingStore struct{ calls int }

func (s *failingStore) Get(context.Context, string, limiter.Rate) (limiter.Context, error) {
	s.calls++
	return limiter.Context{}, errors.New("redis down")
}

func (s *failingStore) Peek(context.Context, string, limiter.Rate) (limiter.Context, error) {
	s.calls++
	return limiter.Context{}, errors.New("redis down")
}

func (s *failingStore) Reset(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("redis down")
}

func (s *failingStore) Increment(context.Context, string, int64, limiter.Rate) (limiter.Context, error) {
	s.calls++
	return limiter.Context{}, errors.New("redis down")
}

func TestStoreFailuresFailOpenAndTripBreaker(t *testing.T) {
	store := &failingStore{}
	lim, err := New(store, "1-M")
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	var reported int
	handler := Handler{
		Limiter: lim,
		Scope:   "quotes",
		OnError: func(error) { reported++ },
		Breaker: resilience.NewBreaker(2, 0.5, time.Minute),
	}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected fail-open 200, got %d", i, rr.Code)
		}
	}
	if store.calls != 2 {
		t.Fatalf("expected breaker to stop store calls after 2 failures, got %d", store.calls)
	}
	if reported != 2 {
		t.Fatalf("expected 2 reported errors, got %d", reported)
	}
}
