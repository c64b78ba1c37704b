/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metrics exposes Prometheus instrumentation for record operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector holds the metric vectors of one engine. It owns its registry so
// several engines can coexist in a process. A nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	Operations   *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	StaleQueries *prometheus.CounterVec
	ItemFailures *prometheus.CounterVec
}

// NewCollector creates a Collector under the given namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "recordstore"
	}
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Store round trips by collection, operation, execution path and status",
		}, []string{"collection", "operation", "path", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of planned operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection", "operation", "path"}),
		StaleQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_index_queries_total",
			Help:      "Indexed queries issued while key-path mutations may not be indexed yet",
		}, []string{"collection", "policy"}),
		ItemFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_item_failures_total",
			Help:      "Per-item failures isolated by bulk operations",
		}, []string{"collection", "operation"}),
	}
	reg.MustRegister(c.Operations, c.Duration, c.StaleQueries, c.ItemFailures)
	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler that serves the collector's metrics. A nil
// collector serves 404.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one operation and observes its duration.
func (c *Collector) RecordOperation(collection, operation, path string, err error, d time.Duration) {
	if c == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.Operations.WithLabelValues(collection, operation, path, status).Inc()
	c.Duration.WithLabelValues(collection, operation, path).Observe(d.Seconds())
}

// RecordStaleQuery counts an indexed query issued inside the lag window.
func (c *Collector) RecordStaleQuery(collection, policy string) {
	if c == nil {
		return
	}
	c.StaleQueries.WithLabelValues(collection, policy).Inc()
}

// RecordItemFailures counts isolated per-item failures of a bulk operation.
func (c *Collector) RecordItemFailures(collection, operation string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ItemFailures.WithLabelValues(collection, operation).Add(float64(n))
}
