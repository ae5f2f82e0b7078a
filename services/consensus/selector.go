// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"math/rand"
	"sync"

	"github.com/guardian-ai/convergence/services/llm"
)

// Selector decides which of the requested backends a run actually calls.
//
// Implementations must preserve the relative order of the input slice so that
// invocation order, and with it the narrative and result ordering, stays
// deterministic for a given selection.
type Selector interface {
	Select(backends []llm.BackendDescriptor) []llm.BackendDescriptor
}

// AllAvailableSelector keeps every available backend. This is the default and
// the only selector that guarantees identical inputs produce identical
// consensus output.
type AllAvailableSelector struct{}

// Select filters out unavailable backends, preserving order.
func (AllAvailableSelector) Select(backends []llm.BackendDescriptor) []llm.BackendDescriptor {
	out := make([]llm.BackendDescriptor, 0, len(backends))
	for _, b := range backends {
		if b.Available {
			out = append(out, b)
		}
	}
	return out
}

// WeightedRandomSelector picks a random subset of the available backends,
// favoring higher reliability weights. Useful for sampling-style deployments
// that trade determinism for cost; the consensus math downstream is unchanged.
//
// # Thread Safety
//
// Safe for concurrent use; the random source is guarded by a mutex.
type WeightedRandomSelector struct {
	mu sync.Mutex
	// MinPick is the minimum subset size; clamped to the available count.
	MinPick int
	rng     *rand.Rand
}

// NewWeightedRandomSelector builds a selector with a fixed seed. Fixed seeding
// keeps test runs reproducible.
func NewWeightedRandomSelector(seed int64, minPick int) *WeightedRandomSelector {
	if minPick < 1 {
		minPick = 1
	}
	return &WeightedRandomSelector{
		MinPick: minPick,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Select draws a weighted subset without replacement, then restores the
// original relative order.
func (s *WeightedRandomSelector) Select(backends []llm.BackendDescriptor) []llm.BackendDescriptor {
	available := AllAvailableSelector{}.Select(backends)
	if len(available) == 0 {
		return available
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.MinPick
	if count > len(available) {
		count = len(available)
	}
	if extra := len(available) - count; extra > 0 {
		count += s.rng.Intn(extra + 1)
	}

	picked := make(map[int]bool, count)
	remaining := make([]int, len(available))
	for i := range remaining {
		remaining[i] = i
	}
	for len(picked) < count {
		var total float64
		for _, idx := range remaining {
			total += available[idx].ReliabilityWeight
		}
		roll := s.rng.Float64() * total
		chosen := remaining[len(remaining)-1]
		for _, idx := range remaining {
			roll -= available[idx].ReliabilityWeight
			if roll <= 0 {
				chosen = idx
				break
			}
		}
		picked[chosen] = true
		next := remaining[:0]
		for _, idx := range remaining {
			if idx != chosen {
				next = append(next, idx)
			}
		}
		remaining = next
	}

	out := make([]llm.BackendDescriptor, 0, count)
	for i, b := range available {
		if picked[i] {
			out = append(out, b)
		}
	}
	return out
}
