// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/guardian-ai/convergence/services/consensus/indicators"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Bias Scorer
// =============================================================================

// BiasConfig holds the tunable knobs of the bias and anomaly detectors.
//
// All thresholds are configuration, not hardcoded, so deployments can tighten
// or relax rejection without a rebuild. DefaultBiasConfig loads the embedded
// defaults; callers may mutate the returned value before constructing a
// scorer.
type BiasConfig struct {
	// PatternWeight, StatisticalWeight and ContextualWeight blend the three
	// detectors into the composite score. They must sum to 1.0.
	PatternWeight     float64 `yaml:"-" json:"pattern_weight"`
	StatisticalWeight float64 `yaml:"-" json:"statistical_weight"`
	ContextualWeight  float64 `yaml:"-" json:"contextual_weight"`

	// BiasThreshold rejects responses whose composite score exceeds it.
	BiasThreshold float64 `yaml:"-" json:"bias_threshold"`

	// SigmaThreshold is the z-score past which a word frequency counts as an
	// outlier.
	SigmaThreshold float64 `yaml:"-" json:"sigma_threshold"`

	// PatternAmplification scales the raw indicator-phrase fraction before
	// capping. At 1.0 the detector is the plain fraction of indicator hits
	// per word.
	PatternAmplification float64 `yaml:"-" json:"pattern_amplification"`

	// OutlierAmplification scales the raw outlier fraction before capping.
	OutlierAmplification float64 `yaml:"-" json:"outlier_amplification"`

	// DivergencePercentile sets the adaptive divergence cutoff within a run.
	DivergencePercentile float64 `yaml:"-" json:"divergence_percentile"`

	// MinWordsForStatistics disables the statistical detector for very short
	// responses, where frequency z-scores are meaningless.
	MinWordsForStatistics int `yaml:"-" json:"min_words_for_statistics"`

	// IndicatorPhrases are the loaded/absolutist phrases the pattern detector
	// counts.
	IndicatorPhrases []string `yaml:"indicator_phrases" json:"indicator_phrases"`

	// ContextPairs are subject/attribute word pairs whose co-occurrence in a
	// sentence flags loaded framing.
	ContextPairs [][2]string `yaml:"-" json:"context_pairs"`
}

// biasConfigFile is the on-disk (embedded) shape of bias_indicators.yaml.
type biasConfigFile struct {
	Weights struct {
		Pattern     float64 `yaml:"pattern"`
		Statistical float64 `yaml:"statistical"`
		Contextual  float64 `yaml:"contextual"`
	} `yaml:"weights"`
	Thresholds struct {
		BiasRejection        float64 `yaml:"bias_rejection"`
		Sigma                float64 `yaml:"sigma"`
		PatternAmplification float64 `yaml:"pattern_amplification"`
		OutlierAmplification float64 `yaml:"outlier_amplification"`
		DivergencePercentile float64 `yaml:"divergence_percentile"`
		MinWordsForStats     int     `yaml:"min_words_for_statistics"`
	} `yaml:"thresholds"`
	IndicatorPhrases []string   `yaml:"indicator_phrases"`
	ContextPairs     [][]string `yaml:"context_pairs"`
}

// DefaultBiasConfig loads the embedded default detector configuration.
func DefaultBiasConfig() (BiasConfig, error) {
	var file biasConfigFile
	if err := yaml.Unmarshal(indicators.BiasIndicators, &file); err != nil {
		return BiasConfig{}, fmt.Errorf("failed to unmarshal the embedded bias configuration: %w", err)
	}

	cfg := BiasConfig{
		PatternWeight:         file.Weights.Pattern,
		StatisticalWeight:     file.Weights.Statistical,
		ContextualWeight:      file.Weights.Contextual,
		BiasThreshold:         file.Thresholds.BiasRejection,
		SigmaThreshold:        file.Thresholds.Sigma,
		PatternAmplification:  file.Thresholds.PatternAmplification,
		OutlierAmplification:  file.Thresholds.OutlierAmplification,
		DivergencePercentile:  file.Thresholds.DivergencePercentile,
		MinWordsForStatistics: file.Thresholds.MinWordsForStats,
		IndicatorPhrases:      file.IndicatorPhrases,
	}
	for _, pair := range file.ContextPairs {
		if len(pair) != 2 {
			return BiasConfig{}, fmt.Errorf("context pair must have exactly 2 entries, got %d", len(pair))
		}
		cfg.ContextPairs = append(cfg.ContextPairs, [2]string{pair[0], pair[1]})
	}

	sum := cfg.PatternWeight + cfg.StatisticalWeight + cfg.ContextualWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return BiasConfig{}, fmt.Errorf("detector weights must sum to 1.0, got %.4f", sum)
	}
	if cfg.PatternAmplification <= 0 || cfg.OutlierAmplification <= 0 {
		return BiasConfig{}, fmt.Errorf("amplification factors must be positive")
	}
	return cfg, nil
}

// BiasScorer computes per-response bias scores from raw response text.
//
// # Thread Safety
//
// A BiasScorer is immutable after construction and safe for concurrent use.
type BiasScorer struct {
	cfg        BiasConfig
	indicators []*regexp.Regexp
	pairs      [][2]*regexp.Regexp
}

// NewBiasScorer builds a scorer from the given configuration.
//
// Phrase and pair terms match on word boundaries, so "rational" does not fire
// inside "rationale" and "men" does not fire inside "document".
func NewBiasScorer(cfg BiasConfig) *BiasScorer {
	s := &BiasScorer{cfg: cfg}
	for _, phrase := range cfg.IndicatorPhrases {
		s.indicators = append(s.indicators, boundaryPattern(phrase))
	}
	for _, pair := range cfg.ContextPairs {
		s.pairs = append(s.pairs, [2]*regexp.Regexp{
			boundaryPattern(pair[0]),
			boundaryPattern(pair[1]),
		})
	}
	return s
}

func boundaryPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(term)) + `\b`)
}

// Config returns a copy of the scorer's configuration.
func (s *BiasScorer) Config() BiasConfig {
	return s.cfg
}

// Score computes the composite bias score for one response text, in [0,1].
//
// The composite is a weighted blend of pattern, statistical and contextual
// detection. Each detector is independently capped at 1.0 before blending, so
// the composite is also bounded.
func (s *BiasScorer) Score(text string) float64 {
	return s.cfg.PatternWeight*s.patternScore(text) +
		s.cfg.StatisticalWeight*s.statisticalScore(text) +
		s.cfg.ContextualWeight*s.contextualScore(text)
}

// patternScore is the indicator-phrase occurrence rate against word count,
// scaled by the configured amplification and capped at 1.0.
func (s *BiasScorer) patternScore(text string) float64 {
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, re := range s.indicators {
		hits += len(re.FindAllStringIndex(lower, -1))
	}
	score := float64(hits) / float64(len(words)) * s.cfg.PatternAmplification
	return math.Min(score, 1.0)
}

// statisticalScore measures word-frequency outliers past the sigma threshold.
func (s *BiasScorer) statisticalScore(text string) float64 {
	words := tokenize(text)
	if len(words) < s.cfg.MinWordsForStatistics {
		return 0
	}

	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}

	mean := float64(len(words)) / float64(len(freq))
	var variance float64
	for _, c := range freq {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= float64(len(freq))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}

	outliers := 0
	for _, c := range freq {
		// Deviation in either direction: obsessive repetition sits above the
		// mean, a lone rare word in otherwise repetitive text sits below it.
		if math.Abs(float64(c)-mean)/stddev > s.cfg.SigmaThreshold {
			outliers++
		}
	}
	score := float64(outliers) / float64(len(freq)) * s.cfg.OutlierAmplification
	return math.Min(score, 1.0)
}

// contextualScore is the fraction of sentences pairing a subject term with a
// loaded attribute.
func (s *BiasScorer) contextualScore(text string) float64 {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 0
	}
	flagged := 0
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, pair := range s.pairs {
			if pair[0].MatchString(lower) && pair[1].MatchString(lower) {
				flagged++
				break
			}
		}
	}
	return math.Min(float64(flagged)/float64(len(sentences)), 1.0)
}

var wordPattern = regexp.MustCompile(`[a-zA-Z']+`)

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

var sentenceSplitter = regexp.MustCompile(`[.!?]+\s+|[.!?]+$`)

func splitSentences(text string) []string {
	parts := sentenceSplitter.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
