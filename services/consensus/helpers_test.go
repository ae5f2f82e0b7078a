// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/rubric"
	"github.com/stretchr/testify/require"
)

// testRubric builds a small standalone rubric so these tests do not depend on
// the embedded catalog definitions.
func testRubric() *rubric.Rubric {
	return &rubric.Rubric{
		Name:        rubric.DomainAICybersecurity,
		DisplayName: "AI Cybersecurity",
		Criteria: []rubric.Criterion{
			{ID: "threat_modeling", Description: "Coverage of AI-specific threat modeling"},
			{ID: "secure_deployment", Description: "Requirements for secure model deployment"},
			{ID: "monitoring", Description: "Runtime monitoring and incident response"},
			{ID: "governance", Description: "Accountability and governance structures"},
			{ID: "completeness", Description: "Overall completeness of the document"},
		},
	}
}

// uniformScoreJSON renders a well-behaved backend reply scoring every
// criterion at the same value, with a deliberately bland rationale.
func uniformScoreJSON(score float64) string {
	return fmt.Sprintf(`{"threat_modeling": %[1]v, "secure_deployment": %[1]v, `+
		`"monitoring": %[1]v, "governance": %[1]v, "completeness": %[1]v, `+
		`"rationale": "The document covers each area with reasonable depth.", "confidence": 0.8}`, score)
}

// heavilyBiasedResponse carries valid scores wrapped in text engineered to
// trip the pattern and contextual detectors at the same time.
const heavilyBiasedResponse = `{"threat_modeling": 20, "secure_deployment": 20, ` +
	`"monitoring": 20, "governance": 20, "completeness": 20, ` +
	`"rationale": "Men are always rational and never emotional. ` +
	`Women are always emotional and never rational. ` +
	`Old frameworks are always outdated and never innovative. ` +
	`Young authors are always innovative and the best. ` +
	`Rich agencies are always deserving and poor agencies are always lazy ` +
	`and without question this is the worst document and everyone knows men are rational"}`

// scriptedInvoker replays canned responses per backend name and records the
// call order and prompts it saw.
type scriptedInvoker struct {
	mu      sync.Mutex
	replies map[string]llm.RawResponse
	delays  map[string]time.Duration
	order   []string
	prompts []string
}

func newScriptedInvoker() *scriptedInvoker {
	return &scriptedInvoker{
		replies: make(map[string]llm.RawResponse),
		delays:  make(map[string]time.Duration),
	}
}

func (s *scriptedInvoker) reply(backend, text string) {
	s.replies[backend] = llm.RawResponse{BackendName: backend, Text: text, LatencyMS: 5}
}

func (s *scriptedInvoker) fail(backend string, kind llm.FailureKind) {
	s.replies[backend] = llm.RawResponse{
		BackendName: backend,
		Err:         &llm.CallError{Kind: kind, Message: "scripted failure"},
	}
}

func (s *scriptedInvoker) Invoke(_ context.Context, backend llm.BackendDescriptor, prompt string, _ time.Duration) (llm.RawResponse, error) {
	if d := s.delays[backend.Name]; d > 0 {
		time.Sleep(d)
	}
	s.mu.Lock()
	s.order = append(s.order, backend.Name)
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if r, ok := s.replies[backend.Name]; ok {
		return r, nil
	}
	return llm.RawResponse{
		BackendName: backend.Name,
		Err:         &llm.CallError{Kind: llm.FailureUnavailable, Message: "no scripted reply"},
	}, nil
}

func testBackends() []llm.BackendDescriptor {
	return []llm.BackendDescriptor{
		{Name: "backend1", ReliabilityWeight: 1.0, Available: true},
		{Name: "backend2", ReliabilityWeight: 0.9, Available: true},
		{Name: "backend3", ReliabilityWeight: 0.7, Available: true},
	}
}

func newTestEngine(t *testing.T, invoker Invoker) *Engine {
	t.Helper()
	cfg, err := DefaultBiasConfig()
	require.NoError(t, err)
	return NewEngine(invoker, NewBiasScorer(cfg), nil, DefaultEngineConfig(), nil)
}

func okResponse(backend, text string) llm.RawResponse {
	return llm.RawResponse{BackendName: backend, Text: text, LatencyMS: 5}
}
