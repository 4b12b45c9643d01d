package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Total number of checkout attempts",
	})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders that survived payment authorization",
	})

	PaymentAuthFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_authorization_failed_total",
		Help: "Total number of failed payment authorizations",
	})

	PaymentAuthLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_authorization_latency_seconds",
		Help:    "Latency of payment authorization calls",
		Buckets: prometheus.DefBuckets,
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"to"})

	TransactionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_created_total",
		Help: "Total number of per-seller settlement transactions created",
	})
)
