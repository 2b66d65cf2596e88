// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// LedgerOperations counts ledger transactions by operation and outcome
	// (ok, conflict, insufficient_stock, validation, not_found, integrity, error).
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger transactions by operation and outcome.",
	}, []string{"op", "outcome"})

	LedgerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_conflict_retries_total",
		Help: "Ledger transactions retried after a lock or version conflict.",
	}, []string{"op"})

	LowStockAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_low_stock_alerts_total",
		Help: "Low-stock alerts recorded by the worker pool.",
	})
)
