// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rubric

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Domain names one of the fixed assessment domains.
type Domain string

const (
	DomainAICybersecurity      Domain = "ai_cybersecurity"
	DomainAIEthics             Domain = "ai_ethics"
	DomainQuantumCybersecurity Domain = "quantum_cybersecurity"
	DomainQuantumEthics        Domain = "quantum_ethics"
)

// UnmarshalYAML rejects unknown domain names at load time.
func (d *Domain) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	incoming := Domain(s)
	switch incoming {
	case DomainAICybersecurity, DomainAIEthics, DomainQuantumCybersecurity, DomainQuantumEthics:
		*d = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for Domain: %q", incoming)
	}
}

// Criterion is one named scoring dimension within a domain's rubric.
type Criterion struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
}

// KeywordTier is one weighted band of indicator terms for heuristic scoring.
type KeywordTier struct {
	Weight int      `yaml:"weight" json:"weight"`
	Terms  []string `yaml:"terms" json:"terms"`
}

// Rubric is the fixed set of named scoring criteria for one domain, together
// with the gate terms that decide applicability and the keyword tables used
// by the offline heuristic scorer.
type Rubric struct {
	Name        Domain                 `yaml:"name" json:"name"`
	DisplayName string                 `yaml:"display_name" json:"display_name"`
	Criteria    []Criterion            `yaml:"criteria" json:"criteria"`
	GateTerms   []string               `yaml:"gate_terms" json:"gate_terms"`
	Keywords    map[string]KeywordTier `yaml:"keywords" json:"keywords"`
}

// HasCriterion reports whether id belongs to this rubric's closed criterion set.
func (r *Rubric) HasCriterion(id string) bool {
	for _, c := range r.Criteria {
		if c.ID == id {
			return true
		}
	}
	return false
}

// CriterionIDs returns the criterion identifiers in declaration order.
func (r *Rubric) CriterionIDs() []string {
	ids := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		ids = append(ids, c.ID)
	}
	return ids
}

// ScopeRule flags one class of document the engine refuses to score.
type ScopeRule struct {
	Type       string   `yaml:"type" json:"type"`
	Indicators []string `yaml:"indicators" json:"indicators"`
}

// catalogFile is the on-disk (embedded) shape of rubrics.yaml.
type catalogFile struct {
	Domains    []Rubric    `yaml:"domains"`
	OutOfScope []ScopeRule `yaml:"out_of_scope"`
}
