// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"fmt"
	"time"

	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/rubric"
)

// =============================================================================
// Weighted Consensus Builder
// =============================================================================

// backendOutcome threads one backend's full journey through a run: the call,
// the normalization attempt and the quality verdict. Slices of outcomes are
// always in invocation order, which is what makes results deterministic.
type backendOutcome struct {
	backend llm.BackendDescriptor
	raw     llm.RawResponse
	norm    *NormalizedScore
	flags   *QualityFlags
}

// contribution is one surviving backend with its effective consensus weight.
type contribution struct {
	outcome *backendOutcome
	weight  float64
}

// agreement bands for the narrative, in centroid-distance units.
const (
	agreementHighBelow     = 0.10
	agreementModerateBelow = 0.25
)

// buildResult merges the surviving responses into the final EnsembleResult.
//
// # Description
//
// Each surviving backend contributes with effective weight
// reliability * (1 - bias). Per criterion the consensus is the weighted mean
// over the survivors that reported it; a criterion no survivor reported comes
// out "not applicable", never zero. Confidence is the surviving effective
// weight over the total reliability of every backend invoked, so both
// rejections and outright call failures depress it.
//
// Zero survivors is a valid terminal state: confidence 0, every criterion not
// applicable, all backends listed as rejected.
func buildResult(runID string, domain rubric.Domain, r *rubric.Rubric, outcomes []backendOutcome) *EnsembleResult {
	// Both backend lists start as empty slices so a total-failure result
	// serializes with the same shape as a successful one.
	result := &EnsembleResult{
		RunID:                runID,
		Domain:               domain,
		ConsensusScores:      make(map[string]ConsensusScore, len(r.Criteria)),
		ContributingBackends: []string{},
		RejectedBackends:     []RejectedBackend{},
		CreatedAt:            time.Now().UTC(),
	}

	var totalReliability float64
	var survivingWeight float64
	var survivors []contribution

	for i := range outcomes {
		o := &outcomes[i]
		totalReliability += o.backend.ReliabilityWeight

		switch {
		case o.raw.Failed():
			result.RejectedBackends = append(result.RejectedBackends,
				RejectedBackend{Name: o.backend.Name, Reason: ReasonBackendError})
		case o.norm == nil:
			result.RejectedBackends = append(result.RejectedBackends,
				RejectedBackend{Name: o.backend.Name, Reason: ReasonParseFailure})
		case o.flags.Rejected:
			result.RejectedBackends = append(result.RejectedBackends,
				RejectedBackend{Name: o.backend.Name, Reason: o.flags.Reason})
		default:
			w := o.backend.ReliabilityWeight * (1 - o.flags.BiasScore)
			survivingWeight += w
			survivors = append(survivors, contribution{outcome: o, weight: w})
			result.ContributingBackends = append(result.ContributingBackends, o.backend.Name)
		}
	}

	for _, id := range r.CriterionIDs() {
		var weightedSum, weightTotal float64
		for _, c := range survivors {
			if v, ok := c.outcome.norm.Scores[id]; ok {
				weightedSum += v * c.weight
				weightTotal += c.weight
			}
		}
		if weightTotal > 0 {
			result.ConsensusScores[id] = ConsensusScore{Value: weightedSum / weightTotal, Applicable: true}
		} else {
			result.ConsensusScores[id] = ConsensusScore{}
		}
	}

	if totalReliability > 0 {
		result.Confidence = survivingWeight / totalReliability
	}

	result.Narrative = buildNarrative(survivors, result)
	return result
}

// buildNarrative assembles the per-backend rationale lines, in invocation
// order, followed by a one-line synthesis.
func buildNarrative(survivors []contribution, result *EnsembleResult) []string {
	narrative := make([]string, 0, len(survivors)+1)

	var maxDivergence float64
	for _, c := range survivors {
		o := c.outcome
		line := fmt.Sprintf("%s (weight %.2f, bias %.2f): %s",
			o.backend.Name, c.weight, o.flags.BiasScore, o.norm.Rationale)
		narrative = append(narrative, line)
		if o.flags.DivergenceScore > maxDivergence {
			maxDivergence = o.flags.DivergenceScore
		}
	}

	switch {
	case len(survivors) == 0:
		narrative = append(narrative,
			"No backend produced a usable assessment; the consensus carries no confidence.")
	case len(survivors) == 1:
		narrative = append(narrative, fmt.Sprintf(
			"Single-source assessment from %s; no cross-model agreement available.",
			survivors[0].outcome.backend.Name))
	case maxDivergence < agreementHighBelow:
		narrative = append(narrative, fmt.Sprintf(
			"High agreement across %d sources; %d excluded.",
			len(survivors), len(result.RejectedBackends)))
	case maxDivergence < agreementModerateBelow:
		narrative = append(narrative, fmt.Sprintf(
			"Moderate agreement across %d sources; %d excluded.",
			len(survivors), len(result.RejectedBackends)))
	default:
		narrative = append(narrative, fmt.Sprintf(
			"Mixed agreement across %d sources; %d excluded. Treat per-criterion scores with care.",
			len(survivors), len(result.RejectedBackends)))
	}
	return narrative
}
