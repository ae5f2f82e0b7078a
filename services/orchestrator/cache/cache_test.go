// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"testing"
	"time"

	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/guardian-ai/convergence/services/rubric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *ScoreCache {
	t.Helper()
	c, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleResult() *consensus.EnsembleResult {
	return &consensus.EnsembleResult{
		RunID:  "run-abc",
		Domain: rubric.DomainAIEthics,
		ConsensusScores: map[string]consensus.ConsensusScore{
			"fairness":     {Value: 72.5, Applicable: true},
			"transparency": {},
		},
		Confidence:           0.81,
		ContributingBackends: []string{"openai", "ollama"},
		RejectedBackends: []consensus.RejectedBackend{
			{Name: "anthropic", Reason: consensus.ReasonDivergence},
		},
		Narrative: []string{"openai (weight 0.95, bias 0.05): solid"},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestScoreCacheRoundTrip(t *testing.T) {
	c := openTestCache(t)
	key := Key("document text", "ai_ethics", "parallel")

	_, err := c.Get(key)
	require.ErrorIs(t, err, ErrCacheMiss)

	want := sampleResult()
	require.NoError(t, c.Put(key, want))

	got, err := c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Confidence, got.Confidence)
	assert.Equal(t, want.ContributingBackends, got.ContributingBackends)
	assert.Equal(t, want.RejectedBackends, got.RejectedBackends)

	fairness := got.ConsensusScores["fairness"]
	assert.True(t, fairness.Applicable)
	assert.Equal(t, 72.5, fairness.Value)
	assert.False(t, got.ConsensusScores["transparency"].Applicable,
		"a not-applicable score must survive the round trip as not applicable")
}

func TestScoreCacheKey(t *testing.T) {
	base := Key("text", "ai_ethics", "parallel")

	assert.Equal(t, base, Key("text", "ai_ethics", "parallel"), "key derivation must be stable")
	assert.NotEqual(t, base, Key("other text", "ai_ethics", "parallel"))
	assert.NotEqual(t, base, Key("text", "quantum_ethics", "parallel"))
	assert.NotEqual(t, base, Key("text", "ai_ethics", "chain"))
}

func TestScoreCacheOpenValidation(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err, "a persistent cache without a path must be refused")
}
