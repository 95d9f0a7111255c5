package models

import (
	"fmt"
	"math"
)

// weightTolerance absorbs float addition drift, e.g. 0.34+0.33+0.33.
const weightTolerance = 1e-9

// Variation is one arm of an experiment.
type Variation struct {
	Key    string  `json:"key" yaml:"key"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// VariationSet is the validated, ordered list of variations for one experiment.
//
// Invariants:
//   - at least one variation
//   - every weight is finite and >= 0
//   - weights sum to at most 1.0; the remainder is never selected
//
// Keys need not be unique; IndexOf returns the first match.
type VariationSet struct {
	variations []Variation
}

// NewVariationSet validates variations and returns an immutable set.
func NewVariationSet(variations []Variation) (VariationSet, error) {
	if len(variations) == 0 {
		return VariationSet{}, fmt.Errorf("%w: at least one variation is required", ErrValidation)
	}

	var sum float64
	for i, v := range variations {
		if math.IsNaN(v.Weight) || math.IsInf(v.Weight, 0) {
			return VariationSet{}, fmt.Errorf("%w: variation %d (%q) has a non-finite weight", ErrValidation, i, v.Key)
		}
		if v.Weight < 0 {
			return VariationSet{}, fmt.Errorf("%w: variation %d (%q) has a negative weight", ErrValidation, i, v.Key)
		}
		sum += v.Weight
	}
	if sum > 1.0+weightTolerance {
		return VariationSet{}, fmt.Errorf("%w: the sum of all weights (%g) should not exceed 1.0", ErrValidation, sum)
	}

	owned := make([]Variation, len(variations))
	copy(owned, variations)
	return VariationSet{variations: owned}, nil
}

// Len returns the number of variations.
func (s VariationSet) Len() int {
	return len(s.variations)
}

// At returns the variation at index i. Callers check bounds with Contains.
func (s VariationSet) At(i int) Variation {
	return s.variations[i]
}

// Contains reports whether i is a valid variation index.
func (s VariationSet) Contains(i int) bool {
	return i >= 0 && i < len(s.variations)
}

// Weights returns a copy of the declared weights in order.
func (s VariationSet) Weights() []float64 {
	weights := make([]float64, len(s.variations))
	for i, v := range s.variations {
		weights[i] = v.Weight
	}
	return weights
}

// Variations returns a copy of the variations in order.
func (s VariationSet) Variations() []Variation {
	out := make([]Variation, len(s.variations))
	copy(out, s.variations)
	return out
}

// IndexOf returns the index of the first variation with the given key.
func (s VariationSet) IndexOf(key string) (int, bool) {
	for i, v := range s.variations {
		if v.Key == key {
			return i, true
		}
	}
	return -1, false
}
