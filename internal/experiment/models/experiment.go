package models

import (
	"fmt"
	"strings"
)

// Experiment is a named, externally identified A/B test.
//
// Key is the human readable name used by application code. ID is the opaque
// identifier of the experiment in the analytics tool and names the cookie.
// Experiments are immutable after declaration.
type Experiment struct {
	Key        string
	ID         string
	Variations VariationSet
}

// NewExperiment validates its inputs and builds an Experiment.
func NewExperiment(key, id string, variations []Variation) (*Experiment, error) {
	key = strings.TrimSpace(key)
	id = strings.TrimSpace(id)
	if key == "" {
		return nil, fmt.Errorf("%w: experiment key is required", ErrValidation)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: experiment %q: id is required", ErrValidation, key)
	}
	set, err := NewVariationSet(variations)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", key, err)
	}
	return &Experiment{Key: key, ID: id, Variations: set}, nil
}

// VariationIndex returns the index of the first variation named key.
func (e *Experiment) VariationIndex(key string) (int, error) {
	i, ok := e.Variations.IndexOf(key)
	if !ok {
		return -1, fmt.Errorf("%w: experiment %q has no variation %q", ErrNotFound, e.Key, key)
	}
	return i, nil
}

// Variation returns the variation at index i.
func (e *Experiment) Variation(i int) (Variation, error) {
	if !e.Variations.Contains(i) {
		return Variation{}, fmt.Errorf("%w: experiment %q has no variation index %d", ErrValidation, e.Key, i)
	}
	return e.Variations.At(i), nil
}

// Assignment is the read model of one experiment's variation in a request.
type Assignment struct {
	ExperimentKey string    `json:"experiment_key"`
	ExperimentID  string    `json:"experiment_id"`
	Index         int       `json:"variation_index"`
	Variation     Variation `json:"variation"`
}
