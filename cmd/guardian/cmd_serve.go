// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/orchestrator/cache"
	"github.com/guardian-ai/convergence/services/orchestrator/handlers"
	"github.com/guardian-ai/convergence/services/orchestrator/observability"
	"github.com/guardian-ai/convergence/services/orchestrator/routes"
	"github.com/guardian-ai/convergence/services/rubric"
	"github.com/spf13/cobra"
)

// runServeCommand starts a local development server. It differs from the
// deployed orchestrator binary in that it skips OTLP trace export and keeps
// the score cache in memory, so it needs no collector and no writable disk.
func runServeCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	catalog, err := rubric.NewCatalog()
	if err != nil {
		log.Fatalf("Error loading rubrics: %v", err)
	}
	biasCfg, err := consensus.DefaultBiasConfig()
	if err != nil {
		log.Fatalf("Error loading bias configuration: %v", err)
	}

	adapter := llm.NewAdapter()
	backends := configureLocalBackends(adapter, logger)

	engine := consensus.NewEngine(adapter, consensus.NewBiasScorer(biasCfg), nil,
		consensus.EngineConfig{CallTimeout: time.Duration(callTimeout) * time.Second},
		logger.Slog())

	scoreCache, err := cache.Open(cache.InMemoryConfig())
	if err != nil {
		log.Fatalf("Error opening score cache: %v", err)
	}
	defer scoreCache.Close()

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	routes.SetupRoutes(router, handlers.ScoreDeps{
		Engine:   engine,
		Catalog:  catalog,
		Cache:    scoreCache,
		Backends: backends,
		Metrics:  observability.InitMetrics(),
	})

	log.Printf("Serving on port %s (backends: %d configured)", servePort, len(backends))
	if err := router.Run(":" + servePort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
