// Package catalog holds the built-in exercise list used to seed new databases.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"repe/internal/server/core"

	"gopkg.in/yaml.v3"
)

//go:embed exercises.yaml
var builtin []byte

type entry struct {
	Name      string   `yaml:"name"`
	Category  string   `yaml:"category"`
	Equipment []string `yaml:"equipment"`
	Notes     string   `yaml:"notes"`
}

type document struct {
	Exercises []entry `yaml:"exercises"`
}

// Builtin returns the embedded catalog
func Builtin() ([]core.CreateExerciseRequest, error) {
	return Parse(builtin)
}

// LoadFile reads a catalog in the same YAML layout as the built-in one
func LoadFile(path string) ([]core.CreateExerciseRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Names must be present and unique, ignoring case.
func Parse(data []byte) ([]core.CreateExerciseRequest, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(doc.Exercises))
	reqs := make([]core.CreateExerciseRequest, 0, len(doc.Exercises))
	for i, e := range doc.Exercises {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("catalog lists %q twice", name)
		}
		seen[key] = true

		category := strings.TrimSpace(e.Category)
		if category == "" {
			category = "other"
		}
		reqs = append(reqs, core.CreateExerciseRequest{
			Name:      name,
			Category:  category,
			Equipment: e.Equipment,
			Notes:     strings.TrimSpace(e.Notes),
		})
	}
	return reqs, nil
}
