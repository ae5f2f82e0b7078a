// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import "sync"

// Analytics accumulates in-process run statistics for the lifetime of an
// engine. It backs the orchestrator's analytics endpoint and is independent
// of the Prometheus metrics, which live at the HTTP layer.
type Analytics struct {
	mu            sync.Mutex
	runs          int64
	confidenceSum float64
	rejections    map[RejectReason]int64
	backendCalls  map[string]int64
}

// NewAnalytics creates an empty accumulator.
func NewAnalytics() *Analytics {
	return &Analytics{
		rejections:   make(map[RejectReason]int64),
		backendCalls: make(map[string]int64),
	}
}

// Record folds one finished run into the accumulator.
func (a *Analytics) Record(result *EnsembleResult, invoked []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs++
	a.confidenceSum += result.Confidence
	for _, rej := range result.RejectedBackends {
		a.rejections[rej.Reason]++
	}
	for _, name := range invoked {
		a.backendCalls[name]++
	}
}

// AnalyticsSnapshot is a point-in-time copy of the accumulated statistics.
type AnalyticsSnapshot struct {
	Runs           int64                  `json:"runs"`
	MeanConfidence float64                `json:"mean_confidence"`
	Rejections     map[RejectReason]int64 `json:"rejections"`
	BackendCalls   map[string]int64       `json:"backend_calls"`
}

// Snapshot returns a copy safe to serialize while runs continue.
func (a *Analytics) Snapshot() AnalyticsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := AnalyticsSnapshot{
		Runs:         a.runs,
		Rejections:   make(map[RejectReason]int64, len(a.rejections)),
		BackendCalls: make(map[string]int64, len(a.backendCalls)),
	}
	if a.runs > 0 {
		snap.MeanConfidence = a.confidenceSum / float64(a.runs)
	}
	for k, v := range a.rejections {
		snap.Rejections[k] = v
	}
	for k, v := range a.backendCalls {
		snap.BackendCalls[k] = v
	}
	return snap
}
