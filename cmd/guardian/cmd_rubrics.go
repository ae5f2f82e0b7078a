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
	"os"

	"github.com/guardian-ai/convergence/services/rubric"
	"github.com/spf13/cobra"
)

func runRubricsCommand(cmd *cobra.Command, args []string) {
	catalog, err := rubric.NewCatalog()
	if err != nil {
		log.Fatalf("Error loading rubrics: %v", err)
	}

	if jsonOutput {
		rubrics := make([]*rubric.Rubric, 0, len(catalog.Domains()))
		for _, domain := range catalog.Domains() {
			r, err := catalog.ByDomain(domain)
			if err != nil {
				log.Fatalf("Error: %v", err)
			}
			rubrics = append(rubrics, r)
		}
		out, err := json.MarshalIndent(rubrics, "", "  ")
		if err != nil {
			log.Fatalf("Error encoding rubrics: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	for _, domain := range catalog.Domains() {
		r, err := catalog.ByDomain(domain)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Printf("%s (%s)\n", r.DisplayName, r.Name)
		for _, criterion := range r.Criteria {
			fmt.Printf("  %-24s %s\n", criterion.ID, criterion.Description)
		}
		fmt.Println()
	}
}

func runKeywordsCommand(cmd *cobra.Command, args []string) {
	text, err := readDocument(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	catalog, err := rubric.NewCatalog()
	if err != nil {
		log.Fatalf("Error loading rubrics: %v", err)
	}

	if scope := catalog.CheckScope(text, docTitle); scope.OutOfScope {
		fmt.Printf("Document looks out of scope (%s): %s\n", scope.DocumentType, scope.Reason)
		os.Exit(2)
	}

	scores := catalog.ScoreAllKeywords(text, docTitle)
	if jsonOutput {
		out, err := json.MarshalIndent(scores, "", "  ")
		if err != nil {
			log.Fatalf("Error encoding scores: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	for _, score := range scores {
		if !score.Applicable {
			fmt.Printf("  %-24s not applicable\n", score.Domain)
			continue
		}
		fmt.Printf("  %-24s %3d/100 (%d terms matched)\n", score.Domain, score.Score, score.Matches)
	}
}
