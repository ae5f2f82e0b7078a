// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"encoding/json"
	"time"

	"github.com/guardian-ai/convergence/services/rubric"
)

// Mode selects how the orchestrator visits the backends.
type Mode string

const (
	// ModeParallel fans out to every selected backend concurrently, each call
	// under its own timeout.
	ModeParallel Mode = "parallel"

	// ModeChain visits backends sequentially, augmenting each prompt with the
	// previous backend's output. Cannot be parallelized by construction.
	ModeChain Mode = "chain"
)

// RejectReason tags why a backend's opinion was excluded from the consensus.
type RejectReason string

const (
	// ReasonBias marks responses over the bias threshold.
	ReasonBias RejectReason = "bias"

	// ReasonDivergence marks responses past the adaptive divergence threshold.
	ReasonDivergence RejectReason = "divergence"

	// ReasonParseFailure marks responses that arrived but yielded no scores.
	ReasonParseFailure RejectReason = "parse_failure"

	// ReasonBackendError marks calls that failed outright (network, timeout,
	// rate limit, malformed payload).
	ReasonBackendError RejectReason = "backend_error"
)

// NormalizedScore is a backend's opinion reduced to the rubric's terms.
//
// Scores holds only the criteria the backend actually reported; an absent
// criterion carries no value and must never be read as zero. Values are
// clamped to [0,100] at parse time.
type NormalizedScore struct {
	BackendName    string             `json:"backend_name"`
	Scores         map[string]float64 `json:"scores"`
	Rationale      string             `json:"rationale"`
	ConfidenceHint float64            `json:"confidence_hint"`
}

// QualityFlags is the per-response verdict of the bias/anomaly scorer.
// Computed once per run and never mutated afterwards.
type QualityFlags struct {
	// BiasScore is 0.0 (clean) to 1.0 (heavily biased).
	BiasScore float64 `json:"bias_score"`

	// DivergenceScore is the distance from the run's group centroid, >= 0.
	DivergenceScore float64 `json:"divergence_score"`

	// Rejected is true when either score exceeded its threshold.
	Rejected bool `json:"rejected"`

	// Reason is set only when Rejected is true.
	Reason RejectReason `json:"reason,omitempty"`
}

// ConsensusScore is one criterion's final value: a number in [0,100] or
// "not applicable" when no surviving backend reported the criterion.
type ConsensusScore struct {
	Value      float64
	Applicable bool
}

// MarshalJSON renders the score as a number or the literal "not applicable".
func (s ConsensusScore) MarshalJSON() ([]byte, error) {
	if !s.Applicable {
		return json.Marshal("not applicable")
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts either a number or the "not applicable" literal.
func (s *ConsensusScore) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		s.Value = v
		s.Applicable = true
		return nil
	}
	s.Value = 0
	s.Applicable = false
	return nil
}

// RejectedBackend records one excluded backend and why, for the audit trail.
type RejectedBackend struct {
	Name   string       `json:"name"`
	Reason RejectReason `json:"reason"`
}

// EnsembleResult is the engine's sole output.
//
// It is constructed once at the end of an orchestration run and handed to the
// caller read-only; a re-score produces a new EnsembleResult rather than
// updating one in place. Total backend failure is expressed as a well-formed
// result with Confidence 0, never as an error.
type EnsembleResult struct {
	RunID                string                    `json:"run_id"`
	Domain               rubric.Domain             `json:"domain"`
	ConsensusScores      map[string]ConsensusScore `json:"consensus_scores"`
	Confidence           float64                   `json:"confidence"`
	ContributingBackends []string                  `json:"contributing_backends"`
	RejectedBackends     []RejectedBackend         `json:"rejected_backends"`
	Narrative            []string                  `json:"narrative"`
	CreatedAt            time.Time                 `json:"created_at"`
}
