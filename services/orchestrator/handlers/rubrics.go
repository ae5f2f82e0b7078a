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
	"github.com/guardian-ai/convergence/services/orchestrator/datatypes"
	"github.com/guardian-ai/convergence/services/rubric"
)

// ListRubrics returns every configured rubric with its criterion set.
func ListRubrics(catalog *rubric.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos := make([]datatypes.RubricInfo, 0, 4)
		for _, d := range catalog.Domains() {
			r, err := catalog.ByDomain(d)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			infos = append(infos, datatypes.RubricInfo{
				Domain:      r.Name,
				DisplayName: r.DisplayName,
				Criteria:    r.Criteria,
			})
		}
		c.JSON(http.StatusOK, gin.H{"rubrics": infos})
	}
}

// keywordsRequest asks for the deterministic keyword scores across all
// domains, without any LLM involvement.
type keywordsRequest struct {
	Text  string `json:"text" binding:"required"`
	Title string `json:"title"`
}

// HandleKeywords runs the offline keyword scorer for every domain.
func HandleKeywords(catalog *rubric.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req keywordsRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		scope := catalog.CheckScope(req.Text, req.Title)
		c.JSON(http.StatusOK, gin.H{
			"scope":  scope,
			"scores": catalog.ScoreAllKeywords(req.Text, req.Title),
		})
	}
}
