// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	domainName   string
	scoringMode  string
	backendNames []string
	docTitle     string
	remoteScore  bool
	jsonOutput   bool
	verbose      bool
	callTimeout  int
	servePort    string

	rootCmd = &cobra.Command{
		Use:   "guardian",
		Short: "A cli for the Guardian multi-model policy scoring engine",
		Long: `Guardian scores AI policy documents against domain rubrics by
				asking several LLM backends independently and merging their
				opinions into a weighted consensus.`,
	}

	// --- Scoring ---
	scoreCmd = &cobra.Command{
		Use:   "score [file]",
		Short: "Score a policy document against a domain rubric",
		Long: `Reads the document from the given file, or from stdin when no
file is given, and prints the consensus result. By default the ensemble runs
in-process against the configured provider credentials; with --remote the
request is sent to a running orchestrator instead.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runScoreCommand, // Defined in cmd_score.go
	}

	// --- Rubrics / Keywords ---
	rubricsCmd = &cobra.Command{
		Use:   "rubrics",
		Short: "List the scoring domains and their rubric criteria",
		Run:   runRubricsCommand, // Defined in cmd_rubrics.go
	}
	keywordsCmd = &cobra.Command{
		Use:   "keywords [file]",
		Short: "Run the deterministic keyword scorer over a document",
		Args:  cobra.MaximumNArgs(1),
		Run:   runKeywordsCommand, // Defined in cmd_rubrics.go
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run a local scoring server without the deployed orchestrator stack",
		Run:   runServeCommand, // Defined in cmd_serve.go
	}

	// --- Orchestrator ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check the health of a running orchestrator",
		Run:   runHealthCommand, // Defined in cmd_health.go
	}
	analyticsCmd = &cobra.Command{
		Use:   "analytics",
		Short: "Show run analytics from a running orchestrator",
		Run:   runAnalyticsCommand, // Defined in cmd_health.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print raw JSON instead of a formatted summary")

	scoreCmd.Flags().StringVarP(&domainName, "domain", "d", "ai_ethics",
		"Rubric domain to score against")
	scoreCmd.Flags().StringVarP(&scoringMode, "mode", "m", "parallel",
		"Orchestration mode: parallel or chain")
	scoreCmd.Flags().StringSliceVarP(&backendNames, "backends", "b", nil,
		"Backend subset to use (default: all configured)")
	scoreCmd.Flags().StringVarP(&docTitle, "title", "t", "",
		"Document title, used for scope checks")
	scoreCmd.Flags().BoolVar(&remoteScore, "remote", false,
		"Send the request to a running orchestrator instead of scoring locally")
	scoreCmd.Flags().IntVar(&callTimeout, "timeout", 45,
		"Per-backend call timeout in seconds")

	keywordsCmd.Flags().StringVarP(&docTitle, "title", "t", "",
		"Document title, used for scope checks")

	serveCmd.Flags().StringVarP(&servePort, "port", "p", "12310",
		"Port to listen on")
	serveCmd.Flags().IntVar(&callTimeout, "timeout", 45,
		"Per-backend call timeout in seconds")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(rubricsCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(analyticsCmd)
}
