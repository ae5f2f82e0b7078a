// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response structures for the
// orchestrator HTTP API.
package datatypes

import (
	"github.com/go-playground/validator/v10"
	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/guardian-ai/convergence/services/rubric"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxDocumentBytes bounds the document payload. Larger documents must be
	// split by the caller.
	MaxDocumentBytes = 256 * 1024

	// MaxTitleBytes bounds the document title.
	MaxTitleBytes = 1024
)

// scoreValidate is the validator instance for scoring datatypes.
var scoreValidate *validator.Validate

func init() {
	scoreValidate = validator.New()
	_ = scoreValidate.RegisterValidation("maxdocbytes", validateMaxDocBytes)
	_ = scoreValidate.RegisterValidation("maxtitlebytes", validateMaxTitleBytes)
}

// Both size validators check byte length, not rune count, so multi-byte
// payloads cannot slip past the limits.

func validateMaxDocBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxDocumentBytes
}

func validateMaxTitleBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxTitleBytes
}

// =============================================================================
// Score Request / Response
// =============================================================================

// ScoreRequest asks for one ensemble scoring run.
type ScoreRequest struct {
	// Text is the document body. Required.
	Text string `json:"text" validate:"required,maxdocbytes"`

	// Title is optional display context; it also feeds scope detection.
	Title string `json:"title" validate:"omitempty,maxtitlebytes"`

	// Domain selects the rubric.
	Domain string `json:"domain" validate:"required"`

	// Mode is "parallel" (default) or "chain".
	Mode string `json:"mode" validate:"omitempty,oneof=parallel chain"`

	// Backends optionally restricts the run to a subset of the configured
	// backends, by name. Empty means all of them.
	Backends []string `json:"backends" validate:"omitempty,dive,min=1"`

	// NoCache skips the result cache for this request.
	NoCache bool `json:"no_cache"`
}

// Validate runs the struct validation rules.
func (r *ScoreRequest) Validate() error {
	return scoreValidate.Struct(r)
}

// ScoreResponse is the API shape of one completed scoring run.
type ScoreResponse struct {
	Result *consensus.EnsembleResult `json:"result"`

	// KeywordScore is the deterministic offline score for the same domain,
	// reported alongside the ensemble for comparison.
	KeywordScore *rubric.KeywordScore `json:"keyword_score,omitempty"`

	// Cached is true when the result was served from the score cache.
	Cached bool `json:"cached"`
}

// OutOfScopeResponse is returned instead of a score when the document is not
// a policy document the rubrics cover.
type OutOfScopeResponse struct {
	OutOfScope   bool   `json:"out_of_scope"`
	DocumentType string `json:"document_type"`
	Reason       string `json:"reason"`
}

// RubricInfo describes one rubric for the listing endpoint.
type RubricInfo struct {
	Domain      rubric.Domain      `json:"domain"`
	DisplayName string             `json:"display_name"`
	Criteria    []rubric.Criterion `json:"criteria"`
}
