// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package consensus implements the multi-source ensemble scoring engine.
//
// A run fans a document out to several LLM backends, normalizes each response
// into the rubric's criterion terms, screens every response for bias and
// divergence, and merges the survivors into a single weighted consensus with
// an explicit confidence and a full audit trail of what was excluded and why.
//
// The engine degrades instead of failing: any subset of backends erroring,
// timing out, or being rejected still yields a well-formed EnsembleResult.
package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/rubric"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Orchestration Engine
// =============================================================================

// Invoker is the slice of the backend adapter the engine needs. Satisfied by
// *llm.Adapter.
type Invoker interface {
	Invoke(ctx context.Context, backend llm.BackendDescriptor, prompt string, timeout time.Duration) (llm.RawResponse, error)
}

// EngineConfig carries the engine's tunables.
type EngineConfig struct {
	// CallTimeout is the per-backend deadline. Applied independently to each
	// call, not to the run as a whole.
	CallTimeout time.Duration

	// MaxDocumentChars truncates the document before prompting. Zero means
	// the default of 6000.
	MaxDocumentChars int
}

// DefaultEngineConfig returns the production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CallTimeout:      45 * time.Second,
		MaxDocumentChars: 6000,
	}
}

// Engine runs document scoring ensembles.
//
// # Thread Safety
//
// Safe for concurrent use. Each ScoreDocument call is independent; shared
// state is limited to the analytics accumulator, which locks internally.
type Engine struct {
	invoker   Invoker
	scorer    *BiasScorer
	selector  Selector
	cfg       EngineConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	analytics *Analytics
}

// NewEngine wires an engine from its parts. A nil selector defaults to
// AllAvailableSelector; a nil logger defaults to slog.Default().
func NewEngine(invoker Invoker, scorer *BiasScorer, selector Selector, cfg EngineConfig, logger *slog.Logger) *Engine {
	if selector == nil {
		selector = AllAvailableSelector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultEngineConfig().CallTimeout
	}
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = DefaultEngineConfig().MaxDocumentChars
	}
	return &Engine{
		invoker:   invoker,
		scorer:    scorer,
		selector:  selector,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("guardian/consensus"),
		analytics: NewAnalytics(),
	}
}

// Analytics exposes the engine's run statistics accumulator.
func (e *Engine) Analytics() *Analytics {
	return e.analytics
}

// DocumentRequest describes one scoring run.
type DocumentRequest struct {
	Text     string
	Title    string
	Rubric   *rubric.Rubric
	Backends []llm.BackendDescriptor
	Mode     Mode
}

// ScoreDocument runs the full ensemble for one document.
//
// # Description
//
// The selected backends are invoked in parallel or chained sequentially
// depending on the mode, each call under its own timeout. Responses are
// normalized, screened once for bias and divergence, and merged. The method
// returns an error only for malformed requests; backend trouble, including
// every backend failing, is reported inside the result.
//
// # Inputs
//
//   - ctx: Cancels the whole run, including in-flight backend calls.
//   - req: The document, rubric, backend set and mode.
//
// # Outputs
//
//   - *EnsembleResult: Always well-formed on nil error.
//   - error: Request-contract violations only.
func (e *Engine) ScoreDocument(ctx context.Context, req DocumentRequest) (*EnsembleResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyDocument
	}
	if req.Rubric == nil {
		return nil, ErrNilRubric
	}
	if len(req.Backends) == 0 {
		return nil, ErrNoBackends
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeParallel
	}
	if mode != ModeParallel && mode != ModeChain {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	runID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "consensus.ScoreDocument",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.domain", string(req.Rubric.Name)),
			attribute.String("run.mode", string(mode)),
			attribute.Int("run.backends_requested", len(req.Backends)),
		))
	defer span.End()

	selected := e.selector.Select(req.Backends)
	prompt := e.buildPrompt(req)

	var raws []llm.RawResponse
	var err error
	if mode == ModeChain {
		raws, err = e.invokeChained(ctx, selected, prompt)
	} else {
		raws, err = e.invokeParallel(ctx, selected, prompt)
	}
	if err != nil {
		return nil, err
	}

	outcomes := e.screen(raws, selected, req.Rubric)
	result := buildResult(runID, req.Rubric.Name, req.Rubric, outcomes)

	invoked := make([]string, len(selected))
	for i, b := range selected {
		invoked[i] = b.Name
	}
	e.analytics.Record(result, invoked)

	span.SetAttributes(
		attribute.Float64("run.confidence", result.Confidence),
		attribute.Int("run.contributing", len(result.ContributingBackends)),
		attribute.Int("run.rejected", len(result.RejectedBackends)),
	)
	e.logger.Info("ensemble run complete",
		slog.String("run_id", runID),
		slog.String("domain", string(req.Rubric.Name)),
		slog.String("mode", string(mode)),
		slog.Int("invoked", len(selected)),
		slog.Int("contributing", len(result.ContributingBackends)),
		slog.Float64("confidence", result.Confidence),
	)
	return result, nil
}

// invokeParallel fans the prompt out concurrently. Results land by index, so
// the output order matches the selection order regardless of completion order.
func (e *Engine) invokeParallel(ctx context.Context, backends []llm.BackendDescriptor, prompt string) ([]llm.RawResponse, error) {
	raws := make([]llm.RawResponse, len(backends))
	g, gctx := errgroup.WithContext(ctx)
	for i, backend := range backends {
		g.Go(func() error {
			raw, err := e.invoker.Invoke(gctx, backend, prompt, e.cfg.CallTimeout)
			if err != nil {
				return err
			}
			raws[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raws, nil
}

// invokeChained visits backends in order, feeding each one the previous
// usable response as context for refinement.
func (e *Engine) invokeChained(ctx context.Context, backends []llm.BackendDescriptor, prompt string) ([]llm.RawResponse, error) {
	raws := make([]llm.RawResponse, len(backends))
	previous := ""
	for i, backend := range backends {
		p := prompt
		if previous != "" {
			p = prompt + "\n\nA previous reviewer produced this assessment. Refine or correct it:\n" + previous
		}
		raw, err := e.invoker.Invoke(ctx, backend, p, e.cfg.CallTimeout)
		if err != nil {
			return nil, err
		}
		raws[i] = raw
		if !raw.Failed() {
			previous = raw.Text
		}
	}
	return raws, nil
}

// screen normalizes and quality-checks the raw responses, producing the
// per-backend outcomes the builder consumes.
func (e *Engine) screen(raws []llm.RawResponse, backends []llm.BackendDescriptor, r *rubric.Rubric) []backendOutcome {
	outcomes := make([]backendOutcome, len(raws))
	var norms []*NormalizedScore
	var texts []string
	var normIdx []int

	for i, raw := range raws {
		outcomes[i] = backendOutcome{backend: backends[i], raw: raw}
		if raw.Failed() {
			continue
		}
		norm, err := Normalize(raw, r)
		if err != nil {
			e.logger.Warn("response normalization failed",
				slog.String("backend", raw.BackendName),
				slog.String("error", err.Error()),
			)
			continue
		}
		outcomes[i].norm = norm
		norms = append(norms, norm)
		texts = append(texts, raw.Text)
		normIdx = append(normIdx, i)
	}

	flags := e.scorer.Assess(norms, texts, r)
	for j, i := range normIdx {
		f := flags[j]
		outcomes[i].flags = &f
	}
	return outcomes
}

// buildPrompt renders the scoring instruction for one document and rubric.
func (e *Engine) buildPrompt(req DocumentRequest) string {
	var sb strings.Builder
	sb.WriteString("Assess the following document against the ")
	sb.WriteString(req.Rubric.DisplayName)
	sb.WriteString(" rubric. Score each criterion 0-100, or \"not applicable\" if the document does not address it.\n\nCriteria:\n")
	for _, c := range req.Rubric.Criteria {
		sb.WriteString("- ")
		sb.WriteString(c.ID)
		sb.WriteString(": ")
		sb.WriteString(c.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("\nRespond with a JSON object mapping each criterion id to its score, plus \"rationale\" and \"confidence\" fields.\n")
	if req.Title != "" {
		sb.WriteString("\nTitle: ")
		sb.WriteString(req.Title)
		sb.WriteString("\n")
	}
	sb.WriteString("\nDocument:\n")
	text := req.Text
	if len(text) > e.cfg.MaxDocumentChars {
		text = text[:e.cfg.MaxDocumentChars]
	}
	sb.WriteString(text)
	return sb.String()
}
