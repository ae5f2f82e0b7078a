// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Metrics cover ensemble scoring operations:
//   - Run counters by domain, mode and status
//   - Run duration histograms
//   - Backend rejection counters by reason
//   - Consensus confidence distribution
//   - Cache hit/miss counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "guardian"

const ensembleSubsystem = "ensemble"

// EnsembleMetrics holds all Prometheus metrics for scoring operations.
//
// Initialize once at startup via InitMetrics; registering twice panics on
// duplicate registration.
type EnsembleMetrics struct {
	// RunsTotal counts scoring runs by domain, mode and status.
	// Labels: domain, mode, status (success, error, out_of_scope)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures end-to-end run duration.
	// Labels: domain, mode
	RunDurationSeconds *prometheus.HistogramVec

	// BackendRejectionsTotal counts excluded backend opinions.
	// Labels: backend, reason (bias, divergence, parse_failure, backend_error)
	BackendRejectionsTotal *prometheus.CounterVec

	// ConsensusConfidence observes the confidence of completed runs.
	// Labels: domain
	ConsensusConfidence *prometheus.HistogramVec

	// CacheEventsTotal counts score cache lookups.
	// Labels: outcome (hit, miss, bypass)
	CacheEventsTotal *prometheus.CounterVec

	// ActiveRuns tracks scoring runs currently in flight.
	ActiveRuns prometheus.Gauge
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *EnsembleMetrics

// InitMetrics creates and registers all metrics on the default registry.
func InitMetrics() *EnsembleMetrics {
	DefaultMetrics = &EnsembleMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: ensembleSubsystem,
				Name:      "runs_total",
				Help:      "Total scoring runs by domain, mode and status",
			},
			[]string{"domain", "mode", "status"},
		),

		RunDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: ensembleSubsystem,
				Name:      "run_duration_seconds",
				Help:      "End-to-end scoring run duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"domain", "mode"},
		),

		BackendRejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: ensembleSubsystem,
				Name:      "backend_rejections_total",
				Help:      "Backend opinions excluded from consensus, by reason",
			},
			[]string{"backend", "reason"},
		),

		ConsensusConfidence: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: ensembleSubsystem,
				Name:      "consensus_confidence",
				Help:      "Confidence of completed consensus runs",
				Buckets:   []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
			},
			[]string{"domain"},
		),

		CacheEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: ensembleSubsystem,
				Name:      "cache_events_total",
				Help:      "Score cache lookups by outcome",
			},
			[]string{"outcome"},
		),

		ActiveRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: ensembleSubsystem,
				Name:      "active_runs",
				Help:      "Scoring runs currently in flight",
			},
		),
	}
	return DefaultMetrics
}

// RunStatus labels a completed run for the runs counter.
type RunStatus string

const (
	StatusSuccess    RunStatus = "success"
	StatusError      RunStatus = "error"
	StatusOutOfScope RunStatus = "out_of_scope"
)

// RecordRun records one finished scoring request.
func (m *EnsembleMetrics) RecordRun(domain, mode string, status RunStatus, seconds float64) {
	m.RunsTotal.WithLabelValues(domain, mode, string(status)).Inc()
	if status == StatusSuccess {
		m.RunDurationSeconds.WithLabelValues(domain, mode).Observe(seconds)
	}
}

// RecordRejection counts one excluded backend opinion.
func (m *EnsembleMetrics) RecordRejection(backend, reason string) {
	m.BackendRejectionsTotal.WithLabelValues(backend, reason).Inc()
}

// RecordConfidence observes a run's final confidence.
func (m *EnsembleMetrics) RecordConfidence(domain string, confidence float64) {
	m.ConsensusConfidence.WithLabelValues(domain).Observe(confidence)
}

// RecordCacheEvent counts a cache lookup outcome (hit, miss, bypass).
func (m *EnsembleMetrics) RecordCacheEvent(outcome string) {
	m.CacheEventsTotal.WithLabelValues(outcome).Inc()
}
