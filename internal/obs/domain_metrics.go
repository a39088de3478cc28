package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts priced quotes by the volume tier that applied.
	QuotesTotal *prometheus.CounterVec
	// OrdersSubmittedTotal counts stored orders.
	OrdersSubmittedTotal prometheus.Counter
	// OrderValueCents records the total of each submitted order in cents.
	OrderValueCents prometheus.Histogram
	// OrderTransitionsTotal counts order and payment status changes by kind and target.
	OrderTransitionsTotal *prometheus.CounterVec
	// RevisionRequestsTotal counts revision requests on completed orders.
	RevisionRequestsTotal prometheus.Counter
	// NotificationsTotal counts notification decisions by category and outcome.
	NotificationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of computed price quotes by volume tier.",
		}, []string{"tier"})
		OrdersSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of submitted orders.",
		})
		OrderValueCents = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_cents",
			Help:      "Distribution of submitted order totals in cents.",
			Buckets:   prometheus.ExponentialBuckets(500, 4, 8),
		})
		OrderTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Count of order status and payment status transitions.",
		}, []string{"kind", "to"})
		RevisionRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revision_requests_total",
			Help:      "Count of revision requests.",
		})
		NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of order notifications by category and delivery outcome.",
		}, []string{"category", "outcome"})

		QuotesTotal = register(reg, QuotesTotal)
		OrdersSubmittedTotal = register(reg, OrdersSubmittedTotal)
		OrderValueCents = register(reg, OrderValueCents)
		OrderTransitionsTotal = register(reg, OrderTransitionsTotal)
		RevisionRequestsTotal = register(reg, RevisionRequestsTotal)
		NotificationsTotal = register(reg, NotificationsTotal)
	})
}

// ObserveQuote records a computed quote. An empty tier is reported as "none".
func ObserveQuote(tier string) {
	if QuotesTotal == nil {
		return
	}
	if tier == "" {
		tier = "none"
	}
	QuotesTotal.WithLabelValues(tier).Inc()
}

// ObserveOrderSubmitted records a stored order and its total.
func ObserveOrderSubmitted(totalCents int64) {
	if OrdersSubmittedTotal == nil || OrderValueCents == nil {
		return
	}
	OrdersSubmittedTotal.Inc()
	OrderValueCents.Observe(float64(totalCents))
}

// ObserveTransition records a status change of the given kind.
func ObserveTransition(kind, to string) {
	if OrderTransitionsTotal == nil {
		return
	}
	OrderTransitionsTotal.WithLabelValues(kind, to).Inc()
}

// ObserveRevisionRequested records a stored revision request.
func ObserveRevisionRequested() {
	if RevisionRequestsTotal == nil {
		return
	}
	RevisionRequestsTotal.Inc()
}

// ObserveNotification records whether a notification was delivered or why it was held back.
func ObserveNotification(category, outcome string) {
	if NotificationsTotal == nil {
		return
	}
	NotificationsTotal.WithLabelValues(category, outcome).Inc()
}
