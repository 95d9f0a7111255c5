// Package registry holds the experiments declared at process start.
//
// A Registry is populated during setup, before the server accepts traffic,
// and is read-only afterwards. Reads are not synchronized: declaring an
// experiment while requests are being served is a programming error.
package registry

import (
	"fmt"
	"iter"

	"optimize/internal/experiment/models"
)

// Registry maps experiment keys to experiments, preserving declaration order.
type Registry struct {
	experiments map[string]*models.Experiment
	order       []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{experiments: make(map[string]*models.Experiment)}
}

// Declare validates and registers an experiment. A second declaration under
// the same key replaces the first and keeps its position in declaration order.
func (r *Registry) Declare(key, id string, variations []models.Variation) (*models.Experiment, error) {
	exp, err := models.NewExperiment(key, id, variations)
	if err != nil {
		return nil, err
	}
	if _, exists := r.experiments[exp.Key]; !exists {
		r.order = append(r.order, exp.Key)
	}
	r.experiments[exp.Key] = exp
	return exp, nil
}

// LookupByKey returns the experiment declared under key.
func (r *Registry) LookupByKey(key string) (*models.Experiment, error) {
	exp, ok := r.experiments[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q", models.ErrNotFound, key)
	}
	return exp, nil
}

// LookupByID returns the first experiment, in declaration order, whose
// external id matches.
func (r *Registry) LookupByID(id string) (*models.Experiment, error) {
	for exp := range r.All() {
		if exp.ID == id {
			return exp, nil
		}
	}
	return nil, fmt.Errorf("%w: id %q", models.ErrNotFound, id)
}

// All yields every declared experiment in declaration order. The sequence
// can be ranged over any number of times.
func (r *Registry) All() iter.Seq[*models.Experiment] {
	return func(yield func(*models.Experiment) bool) {
		for _, key := range r.order {
			if !yield(r.experiments[key]) {
				return
			}
		}
	}
}

// Len returns the number of declared experiments.
func (r *Registry) Len() int {
	return len(r.order)
}
