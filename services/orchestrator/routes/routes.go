// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/guardian-ai/convergence/services/orchestrator/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes wires all orchestrator endpoints onto the router.
func SetupRoutes(router *gin.Engine, deps handlers.ScoreDeps) {
	router.GET("/health", handlers.HealthCheck(deps.Backends))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/score", handlers.HandleScore(deps))
		v1.POST("/keywords", handlers.HandleKeywords(deps.Catalog))
		v1.GET("/rubrics", handlers.ListRubrics(deps.Catalog))
		v1.GET("/analytics", handlers.HandleAnalytics(deps.Engine))
	}
}
