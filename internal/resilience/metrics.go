package resilience

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce        sync.Once
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
)

// MustRegisterMetrics registers the breaker collectors once. Breakers built
// before registration simply skip metric updates.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed, 1=open, 2=half-open.",
		}, []string{"target"})
		transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Breaker state transitions.",
		}, []string{"target", "from", "to"})
		breakerState = mustRegister(reg, state)
		breakerTransitions = mustRegister(reg, transitions)
	})
}

func mustRegister[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func setStateGauge(target string, s State) {
	if breakerState != nil {
		breakerState.WithLabelValues(target).Set(float64(s))
	}
}

func observeTransition(target string, from, to State) {
	setStateGauge(target, to)
	if breakerTransitions != nil {
		breakerTransitions.WithLabelValues(target, from.String(), to.String()).Inc()
	}
}
