package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads policy tables from a YAML file and validates them.
// Identity IDs left blank in the file are filled from their map keys.
func LoadFromFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied policy path
	if err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	for id, ident := range t.Identities {
		if ident.ID == "" {
			ident.ID = id
			t.Identities[id] = ident
		}
	}
	for name, task := range t.Tasks {
		if task.Name == "" {
			task.Name = name
			t.Tasks[name] = task
		}
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate policy file %s: %w", path, err)
	}

	return &t, nil
}

// Load returns the tables from path, or the built-in presets when path is empty.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Presets(), nil
	}
	return LoadFromFile(path)
}
