package registry

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"optimize/internal/experiment/models"
)

// Declarations is the on-disk form of a set of experiments.
//
//	version: 1
//	experiments:
//	  - key: layout
//	    id: GAX7-abc
//	    variations:
//	      - {key: small, weight: 0.5}
//	      - {key: big, weight: 0.5}
type Declarations struct {
	Version     int           `yaml:"version"`
	Experiments []Declaration `yaml:"experiments"`
}

// Declaration is one experiment entry of a declarations file.
type Declaration struct {
	Key        string             `yaml:"key"`
	ID         string             `yaml:"id"`
	Variations []models.Variation `yaml:"variations"`
}

// ParseDeclarations decodes a declarations document.
func ParseDeclarations(b []byte) (Declarations, error) {
	var d Declarations
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Declarations{}, fmt.Errorf("declarations: %w", err)
	}
	if d.Version != 1 {
		return Declarations{}, errors.New("declarations: unsupported version")
	}
	return d, nil
}

// LoadFile reads a declarations file and declares every experiment in it.
// The first invalid experiment aborts loading.
func (r *Registry) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	d, err := ParseDeclarations(b)
	if err != nil {
		return err
	}
	return r.DeclareAll(d.Experiments)
}

// DeclareAll declares experiments in order, stopping at the first failure.
func (r *Registry) DeclareAll(decls []Declaration) error {
	for _, d := range decls {
		if _, err := r.Declare(d.Key, d.ID, d.Variations); err != nil {
			return err
		}
	}
	return nil
}
