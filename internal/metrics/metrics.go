// Package metrics holds the Prometheus collectors for the order/inventory
// core. Collectors register on the default registry and are exposed on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StockRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "inventory",
		Name:      "stock_rejections_total",
		Help:      "Operations rejected with insufficient stock.",
	}, []string{"operation"})

	OrdersCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "orders",
		Name:      "committed_total",
		Help:      "Carts successfully committed to orders.",
	})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "orders",
		Name:      "cancelled_total",
		Help:      "Orders cancelled and restocked.",
	})

	CartLinesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "carts",
		Name:      "lines_swept_total",
		Help:      "Cart lines released by the idle-cart sweeper.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shop",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
