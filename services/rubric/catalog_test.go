// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rubric

import (
	"testing"
)

func TestNewCatalog(t *testing.T) {
	catalog, err := NewCatalog()
	if err != nil {
		t.Fatalf("Failed to initialize catalog: %v", err)
	}

	domains := catalog.Domains()
	if len(domains) != 4 {
		t.Fatalf("Expected 4 domains, got %d", len(domains))
	}

	for _, d := range []Domain{
		DomainAICybersecurity,
		DomainAIEthics,
		DomainQuantumCybersecurity,
		DomainQuantumEthics,
	} {
		r, err := catalog.ByDomain(d)
		if err != nil {
			t.Errorf("ByDomain(%s) failed: %v", d, err)
			continue
		}
		if len(r.Criteria) == 0 {
			t.Errorf("Rubric %s has no criteria", d)
		}
		if !r.HasCriterion("completeness") {
			t.Errorf("Rubric %s is missing the shared completeness criterion", d)
		}
	}

	if _, err := catalog.ByDomain(Domain("astrology")); err == nil {
		t.Error("Expected an error for an unknown domain")
	}
}

func TestCheckScope(t *testing.T) {
	catalog, err := NewCatalog()
	if err != nil {
		t.Fatalf("Failed to initialize catalog: %v", err)
	}

	tests := []struct {
		name         string
		title        string
		text         string
		outOfScope   bool
		documentType string
	}{
		{
			name:       "AI policy document",
			title:      "National AI Security Framework",
			text:       "This framework establishes requirements for secure AI deployment and governance.",
			outOfScope: false,
		},
		{
			name:         "Fairy tale",
			title:        "Bedtime Stories",
			text:         "Once upon a time there lived a clever fox.",
			outOfScope:   true,
			documentType: "children's literature",
		},
		{
			name:         "Founding document",
			title:        "US Constitution",
			text:         "We the People of the United States, in Order to form a more perfect Union...",
			outOfScope:   true,
			documentType: "foundational legal document",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			check := catalog.CheckScope(tc.text, tc.title)
			if check.OutOfScope != tc.outOfScope {
				t.Errorf("OutOfScope = %v, want %v", check.OutOfScope, tc.outOfScope)
			}
			if tc.outOfScope && check.DocumentType != tc.documentType {
				t.Errorf("DocumentType = %q, want %q", check.DocumentType, tc.documentType)
			}
		})
	}
}

func TestScoreKeywords(t *testing.T) {
	catalog, err := NewCatalog()
	if err != nil {
		t.Fatalf("Failed to initialize catalog: %v", err)
	}

	aiCyber, err := catalog.ByDomain(DomainAICybersecurity)
	if err != nil {
		t.Fatalf("ByDomain failed: %v", err)
	}

	t.Run("rich document scores high", func(t *testing.T) {
		text := "This AI security framework defines an ai threat model, requirements for " +
			"secure ai deployment, vulnerability management, and ai governance processes."
		score := aiCyber.ScoreKeywords(text, "AI Security Framework")
		if !score.Applicable {
			t.Fatal("Expected the document to be applicable")
		}
		if score.Score < 50 {
			t.Errorf("Expected a high keyword score, got %d", score.Score)
		}
	})

	t.Run("gate terms absent means not applicable, not zero", func(t *testing.T) {
		text := "General building safety codes for commercial properties, covering fire exits and alarms."
		score := aiCyber.ScoreKeywords(text, "Building Safety Code")
		if score.Applicable {
			t.Error("Expected not applicable when no gate term is present")
		}
		if score.Score != 0 {
			t.Errorf("Non-applicable score should be 0, got %d", score.Score)
		}
	})

	t.Run("score is capped at 100", func(t *testing.T) {
		// Every tier term present at once.
		var sb []byte
		for _, tier := range aiCyber.Keywords {
			for _, term := range tier.Terms {
				sb = append(sb, []byte(term+" ")...)
			}
		}
		score := aiCyber.ScoreKeywords(string(sb), "everything")
		if score.Score > 100 {
			t.Errorf("Score must be capped at 100, got %d", score.Score)
		}
	})

	t.Run("out of scope documents score nothing anywhere", func(t *testing.T) {
		scores := catalog.ScoreAllKeywords("Once upon a time, an AI learned ethics.", "A fairy tale")
		for _, s := range scores {
			if s.Applicable || s.Score != 0 {
				t.Errorf("Domain %s should be non-applicable for out-of-scope text", s.Domain)
			}
		}
	})
}
