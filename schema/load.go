/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the YAML layout of a model definition file:
//
//	models:
//	  - name: person
//	    fields:
//	      - {name: id, type: string, id: true}
//	      - {name: name, type: string}
//	      - {name: age, type: number}
type Document struct {
	Models []*Schema `yaml:"models"`
}

// LoadYAML decodes and resolves every model in a definition document.
func LoadYAML(data []byte) ([]*Schema, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode model definitions: %w", err)
	}
	for _, s := range doc.Models {
		if err := s.Resolve(); err != nil {
			return nil, err
		}
	}
	return doc.Models, nil
}

// LoadFile reads model definitions from a YAML file.
func LoadFile(path string) ([]*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model definitions: %w", err)
	}
	return LoadYAML(data)
}
