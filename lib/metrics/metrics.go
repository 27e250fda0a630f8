// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus counters and histograms for
// filesystem verbs and synchronization steps.
//
// A nil *Metrics is valid and records nothing, so components take an
// optional *Metrics without guarding every call.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the revfs collectors, registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	syncTotal         *prometheus.CounterVec
}

// New registers the revfs collectors, plus the Go runtime and process
// collectors, on registry. A nil registry gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: registry,
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revfs_operations_total",
				Help: "Filesystem operations handled, by verb and result",
			},
			[]string{"verb", "result"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "revfs_operation_duration_seconds",
				Help:    "Filesystem operation latency including synchronization",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"verb"},
		),
		syncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revfs_sync_total",
				Help: "Version control steps run, by operation and result",
			},
			[]string{"op", "result"},
		),
	}
}

// ObserveOperation records one completed verb.
func (m *Metrics) ObserveOperation(verb string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(verb, result(err)).Inc()
	m.operationDuration.WithLabelValues(verb).Observe(duration.Seconds())
}

// ObserveSync records one pull, commit, or push.
func (m *Metrics) ObserveSync(op string, err error) {
	if m == nil {
		return
	}
	m.syncTotal.WithLabelValues(op, result(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
