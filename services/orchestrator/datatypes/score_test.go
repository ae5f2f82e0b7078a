// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() ScoreRequest {
	return ScoreRequest{
		Text:   "An AI governance framework with monitoring requirements.",
		Title:  "Framework",
		Domain: "ai_ethics",
	}
}

func TestScoreRequestValidate(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		req := validRequest()
		require.NoError(t, req.Validate())
	})

	t.Run("text over the byte limit is refused", func(t *testing.T) {
		req := validRequest()
		req.Text = strings.Repeat("a", MaxDocumentBytes+1)
		assert.Error(t, req.Validate())
	})

	t.Run("title limit counts bytes, not runes", func(t *testing.T) {
		req := validRequest()
		// 400 three-byte runes: well under the limit as a rune count, over
		// it as a byte count.
		req.Title = strings.Repeat("€", 400)
		require.Greater(t, len(req.Title), MaxTitleBytes)
		assert.Error(t, req.Validate())

		req.Title = strings.Repeat("a", MaxTitleBytes)
		assert.NoError(t, req.Validate())
	})

	t.Run("invalid mode is refused", func(t *testing.T) {
		req := validRequest()
		req.Mode = "tournament"
		assert.Error(t, req.Validate())
	})
}
