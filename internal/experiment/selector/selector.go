// Package selector draws a variation index biased by declared weights.
package selector

import (
	"math/rand/v2"
	"sort"

	"optimize/internal/experiment/models"
)

// Source yields uniform floats in [0, 1). *rand.Rand satisfies it, so tests
// pass a seeded generator for reproducible draws.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Global draws from the process-wide generator, which is safe for concurrent use.
var Global Source = globalSource{}

// Choose returns the index of a variation with probability weight/sum(weights).
//
// Mass left unallocated when weights sum below 1.0 is never selected, and
// zero-weight variations are never chosen. When every weight is zero the
// draw is uniform over all variations so the result is always a valid index.
func Choose(variations models.VariationSet, src Source) int {
	if src == nil {
		src = Global
	}
	n := variations.Len()

	cumulative := make([]float64, n)
	var total float64
	for i := range n {
		total += variations.At(i).Weight
		cumulative[i] = total
	}
	if total <= 0 {
		return min(int(src.Float64()*float64(n)), n-1)
	}

	u := src.Float64() * total
	i := sort.Search(n, func(i int) bool { return cumulative[i] > u })
	if i == n {
		// u landed on total through rounding; take the last selectable variation.
		return lastPositive(variations)
	}
	return i
}

func lastPositive(variations models.VariationSet) int {
	for i := variations.Len() - 1; i >= 0; i-- {
		if variations.At(i).Weight > 0 {
			return i
		}
	}
	return variations.Len() - 1
}
