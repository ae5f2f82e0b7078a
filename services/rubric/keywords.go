// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rubric

import "strings"

// KeywordScore is the deterministic heuristic score for one domain.
type KeywordScore struct {
	Domain     Domain `json:"domain"`
	Score      int    `json:"score"`
	Applicable bool   `json:"applicable"`
	Matches    int    `json:"matches"`
}

// ScoreKeywords computes the tiered keyword score for this rubric's domain.
//
// Each matched term contributes its tier's weight once, regardless of how
// many times it occurs; the total is capped at 100. A document that fails the
// gate-term check scores as not applicable instead of zero, so absence of the
// domain never reads as a bad document.
//
// This is the fast, offline complement to the LLM ensemble: no network, no
// variance, same rubric.
func (r *Rubric) ScoreKeywords(text, title string) KeywordScore {
	result := KeywordScore{Domain: r.Name}
	if !r.Applicable(text, title) {
		return result
	}
	result.Applicable = true

	combined := strings.ToLower(title) + " " + strings.ToLower(text)
	total := 0
	for _, tier := range r.Keywords {
		for _, term := range tier.Terms {
			if strings.Contains(combined, term) {
				total += tier.Weight
				result.Matches++
			}
		}
	}
	if total > 100 {
		total = 100
	}
	result.Score = total
	return result
}

// ScoreAllKeywords runs the keyword scorer for every domain in the catalog.
//
// Out-of-scope documents yield a non-applicable score for every domain; the
// scope reason is reported separately via CheckScope.
func (c *Catalog) ScoreAllKeywords(text, title string) []KeywordScore {
	scores := make([]KeywordScore, 0, len(c.order))
	if c.CheckScope(text, title).OutOfScope {
		for _, d := range c.order {
			scores = append(scores, KeywordScore{Domain: d})
		}
		return scores
	}
	for _, d := range c.order {
		scores = append(scores, c.rubrics[d].ScoreKeywords(text, title))
	}
	return scores
}
