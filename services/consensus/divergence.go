// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"math"
	"sort"

	"github.com/guardian-ai/convergence/services/rubric"
)

// =============================================================================
// Divergence / Anomaly Detection
// =============================================================================

// Assess computes the quality flags for a run's normalized responses.
//
// # Description
//
// Bias is scored per response from its raw text. Divergence is the Euclidean
// distance from the run's centroid over criterion vectors, with the rejection
// cutoff set adaptively at the configured percentile of this run's own
// distances. The cutoff is relative by design: a run where every backend
// disagrees wildly rejects only the worst outlier, not everyone.
//
// With fewer than two normalized responses there is no group to diverge from,
// so every divergence score is 0.
//
// # Inputs
//
//   - norms: Normalized responses, in invocation order.
//   - texts: Raw response texts aligned index-for-index with norms.
//   - r: The run's rubric, which fixes the vector dimensions.
//
// # Outputs
//
//   - []QualityFlags: Aligned index-for-index with norms. Computed once per
//     run; callers must not feed flagged responses back for a second pass.
func (s *BiasScorer) Assess(norms []*NormalizedScore, texts []string, r *rubric.Rubric) []QualityFlags {
	flags := make([]QualityFlags, len(norms))
	for i := range norms {
		flags[i].BiasScore = s.Score(texts[i])
	}

	distances := centroidDistances(norms, r)
	threshold := math.Inf(1)
	if len(norms) >= 2 {
		threshold = percentile(distances, s.cfg.DivergencePercentile)
	}

	for i := range flags {
		flags[i].DivergenceScore = distances[i]
		switch {
		case flags[i].BiasScore > s.cfg.BiasThreshold:
			flags[i].Rejected = true
			flags[i].Reason = ReasonBias
		case distances[i] > threshold:
			flags[i].Rejected = true
			flags[i].Reason = ReasonDivergence
		}
	}
	return flags
}

// centroidDistances maps each response to its Euclidean distance from the
// group centroid. Criterion scores are normalized to [0,1]; criteria a
// response omits contribute 0 to its vector, so the vectors stay comparable.
func centroidDistances(norms []*NormalizedScore, r *rubric.Rubric) []float64 {
	distances := make([]float64, len(norms))
	if len(norms) < 2 {
		return distances
	}

	ids := r.CriterionIDs()
	vectors := make([][]float64, len(norms))
	for i, norm := range norms {
		vec := make([]float64, len(ids))
		for j, id := range ids {
			if v, ok := norm.Scores[id]; ok {
				vec[j] = v / 100
			}
		}
		vectors[i] = vec
	}

	centroid := make([]float64, len(ids))
	for _, vec := range vectors {
		for j, v := range vec {
			centroid[j] += v
		}
	}
	for j := range centroid {
		centroid[j] /= float64(len(vectors))
	}

	for i, vec := range vectors {
		var sum float64
		for j, v := range vec {
			d := v - centroid[j]
			sum += d * d
		}
		distances[i] = math.Sqrt(sum)
	}
	return distances
}

// percentile returns the linearly interpolated percentile of values.
// Interpolation matters for small ensembles: with three backends the cutoff
// sits below the largest distance, so a genuine outlier can still be
// rejected. Rejection compares strictly, so tied distances all survive.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
