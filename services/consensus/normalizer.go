// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/rubric"
)

// =============================================================================
// Response Normalizer
// =============================================================================

// notApplicableLiterals are the textual forms a backend may use to decline a
// criterion. They map to "no value", never to zero.
var notApplicableLiterals = map[string]bool{
	"not applicable": true,
	"n/a":            true,
	"na":             true,
	"none":           true,
}

// Normalize converts one raw backend response into the rubric's terms.
//
// # Description
//
// Parsing is JSON-first: the response is scanned for the first JSON object and
// its fields are matched against the rubric's criterion identifiers, both at
// the top level and under common wrapper keys ("scores", "criteria",
// "per_criterion_scores"). When no JSON object parses, a prose fallback looks
// for "criterion: 85" style patterns per criterion. Criteria the rubric does
// not declare are dropped. Values are clamped to [0,100].
//
// # Outputs
//
//   - *NormalizedScore: Non-nil when at least one criterion was recovered.
//   - error: ErrNoScores when nothing recognizable was found. A response that
//     names criteria but declines all of them as not applicable normalizes to
//     an empty score map, which is success, not failure.
func Normalize(raw llm.RawResponse, r *rubric.Rubric) (*NormalizedScore, error) {
	if raw.Failed() {
		return nil, fmt.Errorf("cannot normalize a failed response from %s: %w", raw.BackendName, raw.Err)
	}

	norm := &NormalizedScore{
		BackendName: raw.BackendName,
		Scores:      make(map[string]float64),
		// Neutral prior when the backend does not self-report confidence.
		ConfidenceHint: 0.5,
	}

	if obj := extractJSONObject(raw.Text); obj != nil {
		declined := parseJSONScores(obj, r, norm)
		if len(norm.Scores) > 0 || declined > 0 {
			if norm.Rationale == "" {
				norm.Rationale = summarize(raw.Text)
			}
			return norm, nil
		}
	}

	parseProseScores(raw.Text, r, norm)
	if len(norm.Scores) == 0 {
		return nil, ErrNoScores
	}
	norm.Rationale = summarize(raw.Text)
	return norm, nil
}

// extractJSONObject finds and decodes the first top-level JSON object in text.
// Models often wrap JSON in markdown fences or preamble prose.
func extractJSONObject(text string) map[string]any {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var obj map[string]any
				if err := json.Unmarshal([]byte(text[start:i+1]), &obj); err != nil {
					return nil
				}
				return obj
			}
		}
	}
	return nil
}

// parseJSONScores walks a decoded object and fills norm in place. It returns
// the number of criteria the backend explicitly declined as not applicable;
// declining every criterion is a valid normalization, an object that names no
// criterion at all is not.
func parseJSONScores(obj map[string]any, r *rubric.Rubric, norm *NormalizedScore) int {
	declined := 0
	// Wrapper keys first so a nested score block wins over stray top-level
	// numbers like "confidence".
	for _, wrapper := range []string{"scores", "criteria", "per_criterion_scores", "criterion_scores"} {
		if nested, ok := obj[wrapper].(map[string]any); ok {
			declined += collectScores(nested, r, norm)
		}
	}
	declined += collectScores(obj, r, norm)

	for _, key := range []string{"rationale", "summary", "explanation", "reasoning"} {
		if s, ok := obj[key].(string); ok && s != "" {
			norm.Rationale = strings.TrimSpace(s)
			break
		}
	}
	for _, key := range []string{"confidence", "confidence_hint"} {
		if v, ok := numericValue(obj[key]); ok {
			// Accept both 0-1 and 0-100 confidence conventions.
			if v > 1 {
				v /= 100
			}
			norm.ConfidenceHint = clamp(v, 0, 1)
			break
		}
	}
	return declined
}

// collectScores matches object keys against the rubric's criterion set and
// returns how many recognized criteria were explicitly declined.
func collectScores(obj map[string]any, r *rubric.Rubric, norm *NormalizedScore) int {
	declined := 0
	for key, val := range obj {
		id := canonicalCriterionID(key)
		if !r.HasCriterion(id) {
			continue
		}
		if s, ok := val.(string); ok && notApplicableLiterals[strings.ToLower(strings.TrimSpace(s))] {
			// Declined explicitly. Leave the criterion absent.
			declined++
			continue
		}
		if v, ok := numericValue(val); ok {
			norm.Scores[id] = clamp(v, 0, 100)
		}
	}
	return declined
}

// proseScorePattern matches "criterion name: 85", "criterion name - 85/100",
// and the not-applicable literals, case-insensitively. The criterion part is
// substituted per rubric criterion.
const proseScorePattern = `(?i)%s\s*(?:score)?\s*[:=\-]\s*(?:is\s+)?(\d+(?:\.\d+)?|not applicable|n/?a)`

// parseProseScores is the fallback for backends that ignore the JSON contract.
func parseProseScores(text string, r *rubric.Rubric, norm *NormalizedScore) {
	for _, c := range r.Criteria {
		// Underscored identifiers also appear in prose with spaces.
		spaced := strings.ReplaceAll(c.ID, "_", `[ _]`)
		re, err := regexp.Compile(fmt.Sprintf(proseScorePattern, spaced))
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		tok := strings.ToLower(m[1])
		if notApplicableLiterals[tok] {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			norm.Scores[c.ID] = clamp(v, 0, 100)
		}
	}
}

// canonicalCriterionID lowercases and converts separators so "Threat Modeling"
// and "threat-modeling" both resolve to "threat_modeling".
func canonicalCriterionID(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// summarize trims a raw response into a rationale-sized excerpt.
func summarize(text string) string {
	const maxLen = 280
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text
	}
	cut := text[:maxLen]
	if idx := strings.LastIndexByte(cut, ' '); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
