// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/guardian-ai/convergence/pkg/logging"
	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/orchestrator/datatypes"
	"github.com/guardian-ai/convergence/services/rubric"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func runScoreCommand(cmd *cobra.Command, args []string) {
	text, err := readDocument(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if remoteScore {
		runRemoteScore(text)
		return
	}
	runLocalScore(text)
}

// runLocalScore builds the full ensemble in-process and scores the document
// against whatever provider credentials are present in the environment.
func runLocalScore(text string) {
	logger := newLogger()
	defer logger.Close()

	catalog, err := rubric.NewCatalog()
	if err != nil {
		log.Fatalf("Error loading rubrics: %v", err)
	}
	domainRubric, err := catalog.ByDomain(rubric.Domain(domainName))
	if err != nil {
		log.Fatalf("Error: %v (try 'guardian rubrics' for the list)", err)
	}

	if scope := catalog.CheckScope(text, docTitle); scope.OutOfScope {
		fmt.Printf("Document looks out of scope (%s): %s\n", scope.DocumentType, scope.Reason)
		os.Exit(2)
	}

	biasCfg, err := consensus.DefaultBiasConfig()
	if err != nil {
		log.Fatalf("Error loading bias configuration: %v", err)
	}

	adapter := llm.NewAdapter()
	backends := configureLocalBackends(adapter, logger)
	if len(backendNames) > 0 {
		backends, err = filterBackends(backends, backendNames)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
	}

	engine := consensus.NewEngine(adapter, consensus.NewBiasScorer(biasCfg), nil,
		consensus.EngineConfig{CallTimeout: time.Duration(callTimeout) * time.Second},
		logger.Slog())

	result, err := engine.ScoreDocument(context.Background(), consensus.DocumentRequest{
		Text:     text,
		Title:    docTitle,
		Rubric:   domainRubric,
		Backends: backends,
		Mode:     consensus.Mode(scoringMode),
	})
	if err != nil {
		log.Fatalf("Error scoring document: %v", err)
	}

	keyword := domainRubric.ScoreKeywords(text, docTitle)
	printScoreResult(result, &keyword, false)
}

// runRemoteScore sends the document to a running orchestrator.
func runRemoteScore(text string) {
	request := datatypes.ScoreRequest{
		Text:     text,
		Title:    docTitle,
		Domain:   domainName,
		Mode:     scoringMode,
		Backends: backendNames,
	}
	payload, err := json.Marshal(request)
	if err != nil {
		log.Fatalf("Error encoding request: %v", err)
	}

	url := orchestratorBaseURL() + "/v1/score"
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("Error reaching the orchestrator at %s: %v", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var scored datatypes.ScoreResponse
		if err := json.NewDecoder(resp.Body).Decode(&scored); err != nil {
			log.Fatalf("Error decoding response: %v", err)
		}
		printScoreResult(scored.Result, scored.KeywordScore, scored.Cached)
	case http.StatusUnprocessableEntity:
		var oos datatypes.OutOfScopeResponse
		if err := json.NewDecoder(resp.Body).Decode(&oos); err != nil {
			log.Fatalf("Error decoding response: %v", err)
		}
		fmt.Printf("Document looks out of scope (%s): %s\n", oos.DocumentType, oos.Reason)
		os.Exit(2)
	default:
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		log.Fatalf("Orchestrator returned %d: %s", resp.StatusCode, buf.String())
	}
}

// configureLocalBackends mirrors the orchestrator's backend setup for
// in-process scoring. Providers without credentials stay unavailable.
func configureLocalBackends(adapter *llm.Adapter, logger *logging.Logger) []llm.BackendDescriptor {
	limit := rate.NewLimiter(rate.Every(time.Second), 4)

	weight := func(name string, def float64) float64 {
		if w, ok := config.BackendWeights[name]; ok && w >= 0 && w <= 1 {
			return w
		}
		return def
	}

	backends := []llm.BackendDescriptor{
		{Name: "openai", ReliabilityWeight: weight("openai", 0.95)},
		{Name: "anthropic", ReliabilityWeight: weight("anthropic", 0.95)},
		{Name: "ollama", ReliabilityWeight: weight("ollama", 0.75)},
	}

	for i := range backends {
		var client llm.LLMClient
		var err error
		switch backends[i].Name {
		case "openai":
			client, err = llm.NewOpenAIClient()
		case "anthropic":
			client, err = llm.NewAnthropicClient()
		case "ollama":
			client = llm.NewOllamaClient()
		}
		if err != nil {
			logger.Warn("backend unavailable", "backend", backends[i].Name, "error", err)
			continue
		}
		adapter.Register(backends[i].Name, client, limit)
		backends[i].Available = true
	}
	return backends
}

// filterBackends keeps the requested subset, preserving configured order.
func filterBackends(backends []llm.BackendDescriptor, names []string) ([]llm.BackendDescriptor, error) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	var kept []llm.BackendDescriptor
	for _, b := range backends {
		if wanted[b.Name] {
			kept = append(kept, b)
			delete(wanted, b.Name)
		}
	}
	for name := range wanted {
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	return kept, nil
}

func printScoreResult(result *consensus.EnsembleResult, keyword *rubric.KeywordScore, cached bool) {
	if jsonOutput {
		out, err := json.MarshalIndent(datatypes.ScoreResponse{
			Result:       result,
			KeywordScore: keyword,
			Cached:       cached,
		}, "", "  ")
		if err != nil {
			log.Fatalf("Error encoding result: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Run %s (domain: %s", result.RunID, result.Domain)
	if cached {
		fmt.Print(", cached")
	}
	fmt.Println(")")
	fmt.Printf("Confidence: %.3f\n\n", result.Confidence)

	criteria := make([]string, 0, len(result.ConsensusScores))
	for id := range result.ConsensusScores {
		criteria = append(criteria, id)
	}
	sort.Strings(criteria)
	for _, id := range criteria {
		score := result.ConsensusScores[id]
		if score.Applicable {
			fmt.Printf("  %-24s %6.1f\n", id, score.Value)
		} else {
			fmt.Printf("  %-24s %s\n", id, "not applicable")
		}
	}

	if keyword != nil && keyword.Applicable {
		fmt.Printf("\nKeyword baseline: %d/100\n", keyword.Score)
	}

	fmt.Printf("\nContributing: %v\n", result.ContributingBackends)
	for _, rejected := range result.RejectedBackends {
		fmt.Printf("Rejected: %s (%s)\n", rejected.Name, rejected.Reason)
	}
	fmt.Println()
	for _, line := range result.Narrative {
		fmt.Println(line)
	}
}
