// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus instrumentation for arbor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbor_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arbor_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Session store metrics.
var (
	SessionWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbor_session_writes_total",
		Help: "Session file writes by result.",
	}, []string{"result"})

	SessionReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbor_session_reloads_total",
		Help: "Session snapshot invalidations caused by external file changes.",
	})
)

// Port monitor metrics.
var (
	MonitoredTerminals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbor_monitored_terminals",
		Help: "Number of terminals under port monitoring.",
	})

	PortPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbor_port_polls_total",
		Help: "Total number of port poll cycles.",
	})

	PortQueryFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbor_port_query_failures_total",
		Help: "Port queries that could not run and were treated as zero ports.",
	})

	DetectedPorts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arbor_detected_ports",
		Help: "Listening ports currently attributed to monitored terminals, per worktree.",
	}, []string{"worktree"})
)

// Terminal metrics.
var (
	ActiveTerminals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbor_active_terminals",
		Help: "Number of running terminal processes.",
	})
)

// WebSocket metrics.
var (
	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbor_ws_connections_active",
		Help: "Number of active event WebSocket connections.",
	})
)
