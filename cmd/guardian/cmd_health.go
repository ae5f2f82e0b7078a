// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/spf13/cobra"
)

var cliHTTPClient = &http.Client{Timeout: 10 * time.Second}

func runHealthCommand(cmd *cobra.Command, args []string) {
	url := orchestratorBaseURL() + "/health"
	resp, err := cliHTTPClient.Get(url)
	if err != nil {
		log.Fatalf("Orchestrator unreachable at %s: %v", url, err)
	}
	defer resp.Body.Close()

	var health struct {
		Status            string   `json:"status"`
		Backends          []string `json:"backends"`
		BackendsAvailable int      `json:"backends_available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		log.Fatalf("Error decoding health response: %v", err)
	}

	fmt.Printf("Status: %s\n", health.Status)
	fmt.Printf("Backends: %v (%d available)\n", health.Backends, health.BackendsAvailable)
	if health.BackendsAvailable == 0 {
		fmt.Println("Warning: no backend is available; scoring requests will return empty results")
	}
}

func runAnalyticsCommand(cmd *cobra.Command, args []string) {
	url := orchestratorBaseURL() + "/v1/analytics"
	resp, err := cliHTTPClient.Get(url)
	if err != nil {
		log.Fatalf("Orchestrator unreachable at %s: %v", url, err)
	}
	defer resp.Body.Close()

	var snapshot consensus.AnalyticsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		log.Fatalf("Error decoding analytics response: %v", err)
	}

	if jsonOutput {
		out, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			log.Fatalf("Error encoding analytics: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Runs: %d\n", snapshot.Runs)
	fmt.Printf("Mean confidence: %.3f\n", snapshot.MeanConfidence)
	if len(snapshot.Rejections) > 0 {
		fmt.Println("Rejections:")
		for reason, count := range snapshot.Rejections {
			fmt.Printf("  %-16s %d\n", reason, count)
		}
	}
	if len(snapshot.BackendCalls) > 0 {
		fmt.Println("Backend calls:")
		for backend, count := range snapshot.BackendCalls {
			fmt.Printf("  %-16s %d\n", backend, count)
		}
	}
}
