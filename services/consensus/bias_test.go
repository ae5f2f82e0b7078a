// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBiasConfig(t *testing.T) {
	cfg, err := DefaultBiasConfig()
	require.NoError(t, err)

	assert.InDelta(t, 1.0, cfg.PatternWeight+cfg.StatisticalWeight+cfg.ContextualWeight, 1e-9)
	assert.Equal(t, 0.6, cfg.BiasThreshold)
	assert.Equal(t, 2.0, cfg.SigmaThreshold)
	assert.Equal(t, 10.0, cfg.PatternAmplification)
	assert.Equal(t, 2.0, cfg.OutlierAmplification)
	assert.Equal(t, 0.90, cfg.DivergencePercentile)
	assert.Equal(t, 10, cfg.MinWordsForStatistics)
	assert.NotEmpty(t, cfg.IndicatorPhrases)
	assert.NotEmpty(t, cfg.ContextPairs)
}

func TestBiasScorerScore(t *testing.T) {
	cfg, err := DefaultBiasConfig()
	require.NoError(t, err)
	scorer := NewBiasScorer(cfg)

	t.Run("neutral assessment scores low", func(t *testing.T) {
		score := scorer.Score(uniformScoreJSON(70))
		assert.Less(t, score, 0.3, "a measured response must stay well under the rejection threshold")
	})

	t.Run("loaded response crosses the rejection threshold", func(t *testing.T) {
		score := scorer.Score(heavilyBiasedResponse)
		assert.Greater(t, score, cfg.BiasThreshold)
	})

	t.Run("score is bounded", func(t *testing.T) {
		score := scorer.Score(heavilyBiasedResponse)
		assert.LessOrEqual(t, score, 1.0)
		assert.GreaterOrEqual(t, scorer.Score(""), 0.0)
	})
}

func TestBiasDetectors(t *testing.T) {
	cfg, err := DefaultBiasConfig()
	require.NoError(t, err)
	scorer := NewBiasScorer(cfg)

	t.Run("pattern detector counts indicator phrases", func(t *testing.T) {
		assert.Zero(t, scorer.patternScore("the document describes controls for model deployment"))
		assert.Greater(t, scorer.patternScore("this is always obviously undoubtedly the best"), 0.0)
	})

	t.Run("pattern score is the hit fraction times the amplification", func(t *testing.T) {
		// One indicator phrase in exactly twenty words.
		text := "always review the policy scope and document retention encryption auditing " +
			"logging classification handling disclosure reporting training access inventory response plans"
		assert.InDelta(t, 1.0/20*cfg.PatternAmplification, scorer.patternScore(text), 1e-9)

		unamplified := cfg
		unamplified.PatternAmplification = 1.0
		assert.InDelta(t, 0.05, NewBiasScorer(unamplified).patternScore(text), 1e-9)
	})

	t.Run("statistical detector skips short responses", func(t *testing.T) {
		assert.Zero(t, scorer.statisticalScore("too short to judge"))
	})

	t.Run("statistical detector flags repetition", func(t *testing.T) {
		repetitive := "risk risk risk risk risk risk risk risk the policy mentions encryption " +
			"auditing logging retention classification handling disclosure reporting review"
		assert.Greater(t, scorer.statisticalScore(repetitive), 0.0)
	})

	t.Run("statistical detector flags deviation below the mean", func(t *testing.T) {
		// Five words at count 10 and one at count 1: the rare word sits
		// 2.24 standard deviations under the mean, the frequent words only
		// 0.45 above it, so the sole outlier is on the low side.
		text := strings.TrimSpace(strings.Repeat("retention encryption auditing logging classification ", 10)) +
			" summary"
		assert.InDelta(t, 1.0/6*cfg.OutlierAmplification, scorer.statisticalScore(text), 1e-9)
	})

	t.Run("contextual detector flags loaded pairings", func(t *testing.T) {
		assert.Zero(t, scorer.contextualScore("The policy requires annual review. Audits are logged."))
		assert.Greater(t, scorer.contextualScore("Women are emotional decision makers. The audit passed."), 0.0)
	})
}
