// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/guardian-ai/convergence/services/llm"
)

// HealthCheck reports liveness and the configured backends.
func HealthCheck(backends []llm.BackendDescriptor) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := make([]string, 0, len(backends))
		available := 0
		for _, b := range backends {
			names = append(names, b.Name)
			if b.Available {
				available++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":             "ok",
			"backends":           names,
			"backends_available": available,
		})
	}
}

// HandleAnalytics exposes the engine's accumulated run statistics.
func HandleAnalytics(engine *consensus.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.Analytics().Snapshot())
	}
}
