package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(min int, ratio float64, openFor time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	b := NewBreaker(min, ratio, openFor)
	b.now = clock.Now
	return b, clock
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	b, clock := newTestBreaker(2, 0.5, time.Second)
	ctx := context.Background()

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))

	clock.Advance(time.Second)
	require.True(t, b.Allow(ctx), "first caller after the open period is let through")
	require.Equal(t, HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "only one trial call at a time")

	b.Report(ctx, true)
	require.Equal(t, Closed, b.State())
	require.True(t, b.Allow(ctx))
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	b, clock := newTestBreaker(1, 0.5, time.Second)
	ctx := context.Background()
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())

	clock.Advance(2 * time.Second)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	b, _ := newTestBreaker(4, 0.5, time.Second)
	ctx := context.Background()
	for _, ok := range []bool{true, true, false, true, true, false} {
		b.Report(ctx, ok)
	}
	require.Equal(t, Closed, b.State())
}

func TestBreakerDo(t *testing.T) {
	b, _ := newTestBreaker(2, 0.6, time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, b.Do(ctx, func(context.Context) error { return nil }))
	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { return boom }), boom)
	require.Equal(t, Closed, b.State())
	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { return boom }), boom)
	require.Equal(t, Open, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpenCircuit)
	require.False(t, called)
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b, _ := newTestBreaker(1, 0.5, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Closed, b.State())
}

func TestBreakerMetrics(t *testing.T) {
	MustRegisterMetrics("resiliencetest", prometheus.NewRegistry())
	b, clock := newTestBreaker(1, 0.5, time.Second)
	b.WithTarget("ratelimit-test")
	ctx := context.Background()

	b.Report(ctx, false)
	require.Equal(t, 1.0, testutil.ToFloat64(breakerState.WithLabelValues("ratelimit-test")))

	clock.Advance(time.Second)
	require.True(t, b.Allow(ctx))
	require.Equal(t, 2.0, testutil.ToFloat64(breakerState.WithLabelValues("ratelimit-test")))
	b.Report(ctx, true)
	require.Equal(t, 0.0, testutil.ToFloat64(breakerState.WithLabelValues("ratelimit-test")))

	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("ratelimit-test", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("ratelimit-test", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("ratelimit-test", "half_open", "closed")))
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, Backoff(base, 0, 1, 0))
	require.Equal(t, 4*base, Backoff(base, 0, 3, 0))
	require.Equal(t, 250*time.Millisecond, Backoff(base, 250*time.Millisecond, 5, 0))

	d := Backoff(base, 0, 2, 0.2)
	require.GreaterOrEqual(t, d, 160*time.Millisecond)
	require.LessOrEqual(t, d, 240*time.Millisecond)
}
