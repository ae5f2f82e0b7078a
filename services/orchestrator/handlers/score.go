// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the orchestrator's HTTP endpoints.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/orchestrator/cache"
	"github.com/guardian-ai/convergence/services/orchestrator/datatypes"
	"github.com/guardian-ai/convergence/services/orchestrator/observability"
	"github.com/guardian-ai/convergence/services/rubric"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var scoreTracer = otel.Tracer("guardian.orchestrator.handlers")

// ScoreDeps bundles the dependencies of the scoring endpoint.
type ScoreDeps struct {
	Engine   *consensus.Engine
	Catalog  *rubric.Catalog
	Cache    *cache.ScoreCache
	Backends []llm.BackendDescriptor
	Metrics  *observability.EnsembleMetrics
}

// HandleScore runs one ensemble scoring request.
//
// Out-of-scope documents are answered without touching any backend. Cached
// results are returned when the same text, domain and mode were scored
// within the cache TTL, unless the request opts out.
func HandleScore(deps ScoreDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := scoreTracer.Start(c.Request.Context(), "HandleScore")
		defer span.End()
		start := time.Now()

		var req datatypes.ScoreRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Mode == "" {
			req.Mode = string(consensus.ModeParallel)
		}

		r, err := deps.Catalog.ByDomain(rubric.Domain(req.Domain))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if check := deps.Catalog.CheckScope(req.Text, req.Title); check.OutOfScope {
			slog.Info("refused out-of-scope document",
				"document_type", check.DocumentType, "domain", req.Domain)
			if deps.Metrics != nil {
				deps.Metrics.RecordRun(req.Domain, req.Mode, observability.StatusOutOfScope, 0)
			}
			c.JSON(http.StatusUnprocessableEntity, datatypes.OutOfScopeResponse{
				OutOfScope:   true,
				DocumentType: check.DocumentType,
				Reason:       check.Reason,
			})
			return
		}

		key := cache.Key(req.Text, req.Domain, req.Mode)
		if deps.Cache != nil && !req.NoCache {
			if cached, err := deps.Cache.Get(key); err == nil {
				if deps.Metrics != nil {
					deps.Metrics.RecordCacheEvent("hit")
				}
				c.JSON(http.StatusOK, datatypes.ScoreResponse{
					Result:       cached,
					KeywordScore: keywordScore(r, req.Text, req.Title),
					Cached:       true,
				})
				return
			} else if !errors.Is(err, cache.ErrCacheMiss) {
				slog.Warn("score cache read failed", "error", err)
			}
			if deps.Metrics != nil {
				deps.Metrics.RecordCacheEvent("miss")
			}
		} else if deps.Metrics != nil {
			deps.Metrics.RecordCacheEvent("bypass")
		}

		backends := selectBackends(deps.Backends, req.Backends)
		if deps.Metrics != nil {
			deps.Metrics.ActiveRuns.Inc()
			defer deps.Metrics.ActiveRuns.Dec()
		}

		result, err := deps.Engine.ScoreDocument(ctx, consensus.DocumentRequest{
			Text:     req.Text,
			Title:    req.Title,
			Rubric:   r,
			Backends: backends,
			Mode:     consensus.Mode(req.Mode),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("scoring run failed", "error", err, "domain", req.Domain)
			if deps.Metrics != nil {
				deps.Metrics.RecordRun(req.Domain, req.Mode, observability.StatusError, 0)
			}
			status := http.StatusInternalServerError
			if errors.Is(err, consensus.ErrNoBackends) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		if deps.Metrics != nil {
			deps.Metrics.RecordRun(req.Domain, req.Mode, observability.StatusSuccess, time.Since(start).Seconds())
			deps.Metrics.RecordConfidence(req.Domain, result.Confidence)
			for _, rej := range result.RejectedBackends {
				deps.Metrics.RecordRejection(rej.Name, string(rej.Reason))
			}
		}

		if deps.Cache != nil && !req.NoCache {
			if err := deps.Cache.Put(key, result); err != nil {
				slog.Warn("score cache write failed", "error", err)
			}
		}

		c.JSON(http.StatusOK, datatypes.ScoreResponse{
			Result:       result,
			KeywordScore: keywordScore(r, req.Text, req.Title),
		})
	}
}

// selectBackends resolves the requested backend names against the configured
// set, preserving configured order. An empty request means all backends.
func selectBackends(configured []llm.BackendDescriptor, requested []string) []llm.BackendDescriptor {
	if len(requested) == 0 {
		return configured
	}
	wanted := make(map[string]bool, len(requested))
	for _, name := range requested {
		wanted[name] = true
	}
	out := make([]llm.BackendDescriptor, 0, len(requested))
	for _, b := range configured {
		if wanted[b.Name] {
			out = append(out, b)
		}
	}
	return out
}

func keywordScore(r *rubric.Rubric, text, title string) *rubric.KeywordScore {
	score := r.ScoreKeywords(text, title)
	return &score
}
