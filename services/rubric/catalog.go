// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rubric owns the fixed scoring rubrics for the assessment domains.
//
// A Rubric enumerates the closed set of criterion identifiers the consensus
// engine accepts for a domain. The package also carries the keyword tables
// for deterministic offline scoring and the out-of-scope detection rules
// that stop the engine from producing misleading numbers for documents the
// rubrics were never designed for.
package rubric

import (
	"fmt"
	"strings"

	"github.com/guardian-ai/convergence/services/rubric/definitions"
	"gopkg.in/yaml.v3"
)

// Catalog is the main entry point for rubric lookups. It holds the state of
// the loaded rubric definitions and provides methods to resolve domains and
// check document scope.
type Catalog struct {
	rubrics    map[Domain]*Rubric
	order      []Domain
	scopeRules []ScopeRule
}

// NewCatalog initializes a Catalog from the rubric definitions embedded in
// the binary via the definitions package.
//
// It performs the following operations:
//  1. Unmarshals the embedded YAML data.
//  2. Validates that every domain has at least one criterion and that
//     criterion identifiers are unique within a domain.
//
// Returns an error if the embedded YAML is malformed or violates those
// invariants.
func NewCatalog() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(definitions.RubricDefinitions, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded rubric file: %w", err)
	}

	catalog := &Catalog{
		rubrics:    make(map[Domain]*Rubric, len(file.Domains)),
		scopeRules: file.OutOfScope,
	}
	for i := range file.Domains {
		r := &file.Domains[i]
		if len(r.Criteria) == 0 {
			return nil, fmt.Errorf("rubric %q has no criteria", r.Name)
		}
		seen := make(map[string]bool, len(r.Criteria))
		for _, c := range r.Criteria {
			if c.ID == "" {
				return nil, fmt.Errorf("rubric %q has a criterion with an empty id", r.Name)
			}
			if seen[c.ID] {
				return nil, fmt.Errorf("rubric %q declares criterion %q twice", r.Name, c.ID)
			}
			seen[c.ID] = true
		}
		if _, dup := catalog.rubrics[r.Name]; dup {
			return nil, fmt.Errorf("rubric %q declared twice", r.Name)
		}
		catalog.rubrics[r.Name] = r
		catalog.order = append(catalog.order, r.Name)
	}
	return catalog, nil
}

// ByDomain resolves the rubric for a domain.
func (c *Catalog) ByDomain(d Domain) (*Rubric, error) {
	r, ok := c.rubrics[d]
	if !ok {
		return nil, fmt.Errorf("no rubric defined for domain %q", d)
	}
	return r, nil
}

// Domains returns the domain names in declaration order.
func (c *Catalog) Domains() []Domain {
	out := make([]Domain, len(c.order))
	copy(out, c.order)
	return out
}

// ScopeCheck classifies a document against the out-of-scope rules.
//
// Children's literature, religious texts, foundational legal documents, and
// literary works pattern-match policy language well enough to earn nonzero
// keyword scores, which is exactly why they must be refused up front.
type ScopeCheck struct {
	OutOfScope   bool   `json:"out_of_scope"`
	DocumentType string `json:"document_type,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// CheckScope reports whether the document is outside every rubric's scope.
func (c *Catalog) CheckScope(text, title string) ScopeCheck {
	combined := strings.ToLower(title) + " " + strings.ToLower(text)
	for _, rule := range c.scopeRules {
		for _, indicator := range rule.Indicators {
			if strings.Contains(combined, indicator) {
				return ScopeCheck{
					OutOfScope:   true,
					DocumentType: rule.Type,
					Reason: fmt.Sprintf("This appears to be %s rather than a cybersecurity, AI, or quantum technology policy document.",
						rule.Type),
				}
			}
		}
	}
	return ScopeCheck{}
}

// Applicable reports whether the domain's gate terms appear in the document.
// A domain whose gate terms are entirely absent resolves to "not applicable"
// rather than a low score.
func (r *Rubric) Applicable(text, title string) bool {
	combined := strings.ToLower(title) + " " + strings.ToLower(text)
	for _, term := range r.GateTerms {
		if strings.Contains(combined, term) {
			return true
		}
	}
	return false
}
