// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"testing"

	"github.com/guardian-ai/convergence/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllAvailableSelector(t *testing.T) {
	backends := testBackends()
	backends[1].Available = false

	selected := AllAvailableSelector{}.Select(backends)
	require.Len(t, selected, 2)
	assert.Equal(t, "backend1", selected[0].Name)
	assert.Equal(t, "backend3", selected[1].Name)
}

func TestWeightedRandomSelector(t *testing.T) {
	backends := testBackends()

	t.Run("same seed, same selection", func(t *testing.T) {
		a := NewWeightedRandomSelector(42, 2).Select(backends)
		b := NewWeightedRandomSelector(42, 2).Select(backends)
		assert.Equal(t, a, b)
	})

	t.Run("respects the minimum pick", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			selected := NewWeightedRandomSelector(seed, 2).Select(backends)
			assert.GreaterOrEqual(t, len(selected), 2, "seed %d", seed)
		}
	})

	t.Run("preserves relative order", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			selected := NewWeightedRandomSelector(seed, 1).Select(backends)
			pos := make(map[string]int, len(backends))
			for i, b := range backends {
				pos[b.Name] = i
			}
			for i := 1; i < len(selected); i++ {
				assert.Less(t, pos[selected[i-1].Name], pos[selected[i].Name], "seed %d", seed)
			}
		}
	})

	t.Run("skips unavailable backends", func(t *testing.T) {
		down := testBackends()
		for i := range down {
			down[i].Available = false
		}
		assert.Empty(t, NewWeightedRandomSelector(1, 1).Select(down))
	})

	t.Run("min pick clamps to the available count", func(t *testing.T) {
		one := []llm.BackendDescriptor{{Name: "solo", ReliabilityWeight: 1, Available: true}}
		selected := NewWeightedRandomSelector(7, 5).Select(one)
		require.Len(t, selected, 1)
	})
}
