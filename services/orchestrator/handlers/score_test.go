// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/orchestrator/cache"
	"github.com/guardian-ai/convergence/services/orchestrator/datatypes"
	"github.com/guardian-ai/convergence/services/rubric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const policyDocument = "This framework establishes requirements for ai security, " +
	"including an ai threat model, secure ai deployment controls, continuous monitoring " +
	"of deployed models, and ai governance with clear accountability."

// fakeInvoker answers every backend call with the same canned text.
type fakeInvoker struct {
	text string
}

func (f fakeInvoker) Invoke(_ context.Context, b llm.BackendDescriptor, _ string, _ time.Duration) (llm.RawResponse, error) {
	return llm.RawResponse{BackendName: b.Name, Text: f.text, LatencyMS: 3}, nil
}

func testDeps(t *testing.T, invoker consensus.Invoker) ScoreDeps {
	t.Helper()

	catalog, err := rubric.NewCatalog()
	require.NoError(t, err)

	biasCfg, err := consensus.DefaultBiasConfig()
	require.NoError(t, err)

	scoreCache, err := cache.Open(cache.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = scoreCache.Close() })

	engine := consensus.NewEngine(invoker, consensus.NewBiasScorer(biasCfg), nil,
		consensus.DefaultEngineConfig(), nil)

	return ScoreDeps{
		Engine:  engine,
		Catalog: catalog,
		Cache:   scoreCache,
		Backends: []llm.BackendDescriptor{
			{Name: "openai", ReliabilityWeight: 0.95, Available: true},
			{Name: "anthropic", ReliabilityWeight: 0.95, Available: true},
			{Name: "ollama", ReliabilityWeight: 0.75, Available: true},
		},
	}
}

func testRouter(deps ScoreDeps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/score", HandleScore(deps))
	router.POST("/v1/keywords", HandleKeywords(deps.Catalog))
	router.GET("/v1/rubrics", ListRubrics(deps.Catalog))
	router.GET("/v1/analytics", HandleAnalytics(deps.Engine))
	router.GET("/health", HealthCheck(deps.Backends))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func uniformReply(score float64) string {
	return `{"threat_modeling": ` + jsonNum(score) + `, "secure_deployment": ` + jsonNum(score) +
		`, "monitoring": ` + jsonNum(score) + `, "governance": ` + jsonNum(score) +
		`, "completeness": ` + jsonNum(score) +
		`, "rationale": "The framework addresses each area with concrete requirements.", "confidence": 0.85}`
}

func jsonNum(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestHandleScore(t *testing.T) {
	deps := testDeps(t, fakeInvoker{text: uniformReply(75)})
	router := testRouter(deps)

	request := datatypes.ScoreRequest{
		Text:   policyDocument,
		Title:  "AI Security Framework",
		Domain: "ai_cybersecurity",
	}

	w := postJSON(t, router, "/v1/score", request)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.ScoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.False(t, resp.Cached)
	assert.Len(t, resp.Result.ContributingBackends, 3)
	assert.InDelta(t, 1.0, resp.Result.Confidence, 1e-9)
	require.NotNil(t, resp.KeywordScore)
	assert.True(t, resp.KeywordScore.Applicable)

	score, ok := resp.Result.ConsensusScores["threat_modeling"]
	require.True(t, ok)
	assert.True(t, score.Applicable)
	assert.InDelta(t, 75, score.Value, 1e-9)

	// The identical request is served from the cache.
	w = postJSON(t, router, "/v1/score", request)
	require.Equal(t, http.StatusOK, w.Code)
	var cached datatypes.ScoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cached))
	assert.True(t, cached.Cached)
	assert.Equal(t, resp.Result.RunID, cached.Result.RunID)
}

func TestHandleScoreNoCache(t *testing.T) {
	deps := testDeps(t, fakeInvoker{text: uniformReply(60)})
	router := testRouter(deps)

	request := datatypes.ScoreRequest{
		Text:    policyDocument,
		Domain:  "ai_cybersecurity",
		NoCache: true,
	}

	first := postJSON(t, router, "/v1/score", request)
	require.Equal(t, http.StatusOK, first.Code)
	second := postJSON(t, router, "/v1/score", request)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b datatypes.ScoreResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.False(t, b.Cached)
	assert.NotEqual(t, a.Result.RunID, b.Result.RunID, "no_cache must force a fresh run")
}

func TestHandleScoreOutOfScope(t *testing.T) {
	deps := testDeps(t, fakeInvoker{text: uniformReply(75)})
	router := testRouter(deps)

	w := postJSON(t, router, "/v1/score", datatypes.ScoreRequest{
		Text:   "Once upon a time, a clever fox outsmarted the farmer.",
		Title:  "Bedtime tales",
		Domain: "ai_ethics",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp datatypes.OutOfScopeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OutOfScope)
	assert.Equal(t, "children's literature", resp.DocumentType)
}

func TestHandleScoreValidation(t *testing.T) {
	deps := testDeps(t, fakeInvoker{text: uniformReply(75)})
	router := testRouter(deps)

	t.Run("missing text", func(t *testing.T) {
		w := postJSON(t, router, "/v1/score", datatypes.ScoreRequest{Domain: "ai_ethics"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown domain", func(t *testing.T) {
		w := postJSON(t, router, "/v1/score", datatypes.ScoreRequest{
			Text:   policyDocument,
			Domain: "astrology",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown backend subset", func(t *testing.T) {
		w := postJSON(t, router, "/v1/score", datatypes.ScoreRequest{
			Text:     policyDocument,
			Domain:   "ai_cybersecurity",
			Backends: []string{"nonexistent"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid mode", func(t *testing.T) {
		w := postJSON(t, router, "/v1/score", datatypes.ScoreRequest{
			Text:   policyDocument,
			Domain: "ai_cybersecurity",
			Mode:   "tournament",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListRubrics(t *testing.T) {
	deps := testDeps(t, fakeInvoker{text: uniformReply(75)})
	router := testRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/v1/rubrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rubrics []datatypes.RubricInfo `json:"rubrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rubrics, 4)
	for _, info := range resp.Rubrics {
		assert.NotEmpty(t, info.Criteria, "rubric %s", info.Domain)
	}
}

func TestHandleKeywords(t *testing.T) {
	deps := testDeps(t, fakeInvoker{text: uniformReply(75)})
	router := testRouter(deps)

	w := postJSON(t, router, "/v1/keywords", gin.H{
		"text":  policyDocument,
		"title": "AI Security Framework",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Scope  rubric.ScopeCheck     `json:"scope"`
		Scores []rubric.KeywordScore `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Scope.OutOfScope)
	require.Len(t, resp.Scores, 4)
}

func TestHealthCheck(t *testing.T) {
	deps := testDeps(t, fakeInvoker{text: uniformReply(75)})
	router := testRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
