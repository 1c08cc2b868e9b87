package rag

import (
	"sort"

	"github.com/cartableai/cartable/pkg/vector"
)

// GateDecision is the outcome of the relevance gate.
type GateDecision int

const (
	// UseContext means retrieval produced relevant chunks and the answer
	// must be grounded in them.
	UseContext GateDecision = iota

	// NoContext means nothing in the store is close enough to the
	// question; the answer falls back to general knowledge.
	NoContext
)

// Gate decides whether retrieved matches are relevant enough to ground an
// answer. Matches use ascending distance, lower is closer. The single best
// distance decides: if even the closest chunk is farther than threshold, the
// whole result set is discarded. A best distance exactly at the threshold
// passes.
//
// The kept matches are the k closest, in ascending distance order. Drivers
// already return sorted results but the gate does not rely on that.
func Gate(matches []vector.ScoredMatch, threshold float32, k int) ([]vector.ScoredMatch, GateDecision) {
	if len(matches) == 0 {
		return nil, NoContext
	}

	sorted := make([]vector.ScoredMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Distance < sorted[j].Distance
	})

	if sorted[0].Distance > threshold {
		return nil, NoContext
	}

	if k > 0 && len(sorted) > k {
		sorted = sorted[:k]
	}

	return sorted, UseContext
}
