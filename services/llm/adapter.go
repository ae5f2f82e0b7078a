// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// Backend Descriptors
// =============================================================================

// BackendDescriptor identifies one LLM backend available to the ensemble.
//
// # Description
//
// A descriptor is immutable after construction except for Available, which is
// refreshed once at the start of an orchestration run from credential and
// health checks. It is never mutated while a run is in flight, so descriptors
// may be shared across goroutines without locking.
type BackendDescriptor struct {
	// Name is the unique backend key (e.g. "openai", "anthropic", "ollama").
	Name string `json:"name"`

	// ReliabilityWeight is a static per-backend trust prior in [0,1].
	// It scales the backend's contribution to the consensus.
	ReliabilityWeight float64 `json:"reliability_weight"`

	// Available reports whether the backend can be called right now.
	// Refreshed per run, read-only during a run.
	Available bool `json:"available"`
}

// FailureKind tags the reason a backend call produced no usable text.
type FailureKind string

const (
	// FailureUnavailable covers network errors, auth failures, and non-2xx
	// responses other than rate limiting.
	FailureUnavailable FailureKind = "unavailable"

	// FailureRateLimited covers HTTP 429 and local rate-limiter denials.
	FailureRateLimited FailureKind = "rate_limited"

	// FailureTimeout covers per-call deadline expiry.
	FailureTimeout FailureKind = "timeout"

	// FailureMalformed covers responses that arrived but could not be decoded.
	FailureMalformed FailureKind = "malformed"
)

// CallError is the typed failure of one backend call.
//
// Failures are data, not control flow: the adapter never lets an error
// propagate past its boundary, so the orchestrator can reason uniformly
// about partial failure.
type CallError struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// RawResponse is the outcome of one backend call during one orchestration run.
//
// Exactly one of Text or Err is meaningful: on success Err is nil and Text is
// populated; on failure Err is set and Text is empty. The orchestrator owns
// RawResponse values for the duration of a run and discards them afterwards.
type RawResponse struct {
	BackendName string     `json:"backend_name"`
	Text        string     `json:"text"`
	LatencyMS   int64      `json:"latency_ms"`
	Err         *CallError `json:"error,omitempty"`
}

// Failed reports whether the call produced no usable text.
func (r RawResponse) Failed() bool {
	return r.Err != nil
}

// =============================================================================
// Adapter
// =============================================================================

// ErrEmptyPrompt is returned by Invoke when the prompt is empty.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// ErrNonPositiveTimeout is returned by Invoke when timeout is <= 0.
var ErrNonPositiveTimeout = errors.New("timeout must be positive")

// Adapter provides the uniform call contract over registered LLM backends.
//
// # Description
//
// The adapter maps a BackendDescriptor to its concrete client, applies a
// per-call timeout and an optional per-backend rate limit, and converts every
// failure mode into a typed RawResponse. It performs no retries; retry policy
// belongs to the orchestration layer.
//
// # Thread Safety
//
// Adapter is safe for concurrent use. Registration must complete before
// concurrent Invoke calls begin.
type Adapter struct {
	mu       sync.RWMutex
	clients  map[string]LLMClient
	limiters map[string]*rate.Limiter
	logger   *slog.Logger
}

// NewAdapter creates an empty adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		clients:  make(map[string]LLMClient),
		limiters: make(map[string]*rate.Limiter),
		logger:   slog.Default(),
	}
}

// Register binds a backend name to a concrete client.
//
// A nil limiter disables local rate limiting for that backend.
func (a *Adapter) Register(name string, client LLMClient, limiter *rate.Limiter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clients[name] = client
	if limiter != nil {
		a.limiters[name] = limiter
	}
}

// Registered reports whether a client is bound for the backend name.
func (a *Adapter) Registered(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.clients[name]
	return ok
}

// Invoke calls one backend and returns its outcome as data.
//
// # Description
//
// All backend trouble (network errors, non-2xx statuses, rate limits,
// timeouts, undecodable payloads) is folded into RawResponse.Err with a
// taxonomy tag. The returned error is non-nil only for caller mistakes:
// empty prompt or non-positive timeout.
//
// # Inputs
//
//   - ctx: Parent context; the per-call timeout is layered on top of it.
//   - backend: Descriptor naming a registered backend.
//   - prompt: Non-empty prompt text.
//   - timeout: Per-call deadline, must be > 0.
//
// # Outputs
//
//   - RawResponse: Always well-formed, success or failure.
//   - error: Input-contract violations only.
func (a *Adapter) Invoke(ctx context.Context, backend BackendDescriptor, prompt string, timeout time.Duration) (RawResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return RawResponse{}, ErrEmptyPrompt
	}
	if timeout <= 0 {
		return RawResponse{}, ErrNonPositiveTimeout
	}

	start := time.Now()
	fail := func(kind FailureKind, msg string) RawResponse {
		return RawResponse{
			BackendName: backend.Name,
			LatencyMS:   time.Since(start).Milliseconds(),
			Err:         &CallError{Kind: kind, Message: msg},
		}
	}

	a.mu.RLock()
	client, ok := a.clients[backend.Name]
	limiter := a.limiters[backend.Name]
	a.mu.RUnlock()

	if !ok || !backend.Available {
		return fail(FailureUnavailable, "backend not registered or not available"), nil
	}

	if limiter != nil && !limiter.Allow() {
		a.logger.Warn("backend rate limited locally", slog.String("backend", backend.Name))
		return fail(FailureRateLimited, "local rate limit exceeded"), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := client.Generate(callCtx, prompt, GenerationParams{})
	latency := time.Since(start)

	if err != nil {
		kind := classifyFailure(err)
		a.logger.Warn("backend call failed",
			slog.String("backend", backend.Name),
			slog.String("kind", string(kind)),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
		)
		return fail(kind, err.Error()), nil
	}

	if strings.TrimSpace(text) == "" {
		return fail(FailureMalformed, "backend returned empty text"), nil
	}

	a.logger.Debug("backend call succeeded",
		slog.String("backend", backend.Name),
		slog.Duration("latency", latency),
		slog.Int("response_len", len(text)),
	)

	return RawResponse{
		BackendName: backend.Name,
		Text:        text,
		LatencyMS:   latency.Milliseconds(),
	}, nil
}

// classifyFailure maps a client error to the failure taxonomy.
func classifyFailure(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			return FailureRateLimited
		case statusErr.Code >= 500 || statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden:
			return FailureUnavailable
		default:
			return FailureMalformed
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline") || strings.Contains(msg, "timeout"):
		return FailureTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return FailureRateLimited
	case strings.Contains(msg, "unmarshal") || strings.Contains(msg, "parse"):
		return FailureMalformed
	default:
		return FailureUnavailable
	}
}

// StatusError carries an HTTP status code from a provider API.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
