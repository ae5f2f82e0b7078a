// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(t *testing.T) *BiasScorer {
	t.Helper()
	cfg, err := DefaultBiasConfig()
	require.NoError(t, err)
	return NewBiasScorer(cfg)
}

func normWithScores(backend string, score float64) *NormalizedScore {
	return &NormalizedScore{
		BackendName: backend,
		Scores: map[string]float64{
			"threat_modeling":   score,
			"secure_deployment": score,
			"monitoring":        score,
			"governance":        score,
			"completeness":      score,
		},
	}
}

func TestAssessDivergence(t *testing.T) {
	r := testRubric()
	scorer := newTestScorer(t)
	neutral := "The document covers each area with reasonable depth."

	t.Run("fewer than two responses means zero divergence", func(t *testing.T) {
		norms := []*NormalizedScore{normWithScores("backend1", 70)}
		flags := scorer.Assess(norms, []string{neutral}, r)
		require.Len(t, flags, 1)
		assert.Zero(t, flags[0].DivergenceScore)
		assert.False(t, flags[0].Rejected)
	})

	t.Run("outlier past the adaptive cutoff is rejected", func(t *testing.T) {
		norms := []*NormalizedScore{
			normWithScores("backend1", 80),
			normWithScores("backend2", 80),
			normWithScores("backend3", 5),
		}
		flags := scorer.Assess(norms, []string{neutral, neutral, neutral}, r)
		assert.False(t, flags[0].Rejected)
		assert.False(t, flags[1].Rejected)
		assert.True(t, flags[2].Rejected)
		assert.Equal(t, ReasonDivergence, flags[2].Reason)
		assert.Greater(t, flags[2].DivergenceScore, flags[0].DivergenceScore)
	})

	t.Run("identical responses all survive", func(t *testing.T) {
		norms := []*NormalizedScore{
			normWithScores("backend1", 70),
			normWithScores("backend2", 70),
			normWithScores("backend3", 70),
		}
		flags := scorer.Assess(norms, []string{neutral, neutral, neutral}, r)
		for i, f := range flags {
			assert.False(t, f.Rejected, "response %d should survive", i)
			assert.Zero(t, f.DivergenceScore)
		}
	})

	t.Run("bias rejection takes precedence over divergence", func(t *testing.T) {
		norms := []*NormalizedScore{
			normWithScores("backend1", 80),
			normWithScores("backend2", 80),
			normWithScores("backend3", 5),
		}
		flags := scorer.Assess(norms, []string{neutral, neutral, heavilyBiasedResponse}, r)
		require.True(t, flags[2].Rejected)
		assert.Equal(t, ReasonBias, flags[2].Reason)
	})

	t.Run("omitted criteria pad the vector instead of breaking it", func(t *testing.T) {
		partial := &NormalizedScore{
			BackendName: "backend2",
			Scores:      map[string]float64{"threat_modeling": 80},
		}
		norms := []*NormalizedScore{normWithScores("backend1", 80), partial}
		flags := scorer.Assess(norms, []string{neutral, neutral}, r)
		require.Len(t, flags, 2)
		assert.Equal(t, flags[0].DivergenceScore, flags[1].DivergenceScore,
			"two-point runs are symmetric around the centroid")
	})
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{name: "empty", values: nil, p: 0.9, want: 0},
		{name: "single value", values: []float64{3}, p: 0.9, want: 3},
		{name: "interpolates between ranks", values: []float64{0, 10}, p: 0.9, want: 9},
		{name: "median of three", values: []float64{1, 2, 3}, p: 0.5, want: 2},
		{name: "p90 of three sits below the max", values: []float64{1, 2, 3}, p: 0.9, want: 2.8},
		{name: "unsorted input", values: []float64{3, 1, 2}, p: 0.5, want: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, percentile(tc.values, tc.p), 1e-9)
		})
	}
}
