/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

import (
	"fmt"

	"github.com/suparena/recordstore/errors"
)

// FieldType is the declared type of a model field.
type FieldType string

const (
	String  FieldType = "string"
	Number  FieldType = "number"
	Boolean FieldType = "boolean"
	Date    FieldType = "date"
	Any     FieldType = "any"
)

// Field describes one model field.
type Field struct {
	Name string    `yaml:"name" json:"name"`
	Type FieldType `yaml:"type" json:"type"`
	// ID marks the identifier field. Exactly one field per schema carries it.
	ID bool `yaml:"id,omitempty" json:"id,omitempty"`
	// Format optionally constrains identifier values; "uuid" is supported.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Schema is the explicit, ordered field list of a model.
type Schema struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`
	// Keys optionally overrides the key layout of the model in backends
	// with composite keys, e.g. {"PK": "USER#{ID}"}.
	Keys map[string]string `yaml:"keys,omitempty" json:"keys,omitempty"`

	idIndex int
	byName  map[string]int
}

// New builds and validates a schema.
func New(name string, fields ...Field) (*Schema, error) {
	s := &Schema{Name: name, Fields: fields}
	if err := s.Resolve(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is like New but panics on an invalid schema. Intended for tests
// and package-level model definitions.
func MustNew(name string, fields ...Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Resolve validates the field list and builds the lookup tables. It must be
// called on schemas built by hand or decoded from YAML before use.
func (s *Schema) Resolve() error {
	if s.Name == "" {
		return errors.NewValidationError("name", "schema name is required")
	}
	s.byName = make(map[string]int, len(s.Fields))
	s.idIndex = -1
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return errors.NewValidationError("fields", fmt.Sprintf("%s: field %d has no name", s.Name, i))
		}
		if _, dup := s.byName[f.Name]; dup {
			return errors.NewValidationError(f.Name, fmt.Sprintf("%s: duplicate field", s.Name))
		}
		if f.Type == "" {
			f.Type = Any
		}
		switch f.Type {
		case String, Number, Boolean, Date, Any:
		default:
			return errors.NewValidationError(f.Name, fmt.Sprintf("%s: unknown type %q", s.Name, f.Type))
		}
		if f.ID {
			if s.idIndex >= 0 {
				return errors.NewValidationError(f.Name, fmt.Sprintf("%s: more than one identifier field", s.Name))
			}
			if f.Type != String && f.Type != Any {
				return errors.NewValidationError(f.Name, fmt.Sprintf("%s: identifier must be a string", s.Name))
			}
			f.Type = String
			s.idIndex = i
		}
		s.byName[f.Name] = i
	}
	if s.idIndex < 0 {
		return errors.NewValidationError("fields", fmt.Sprintf("%s: no identifier field", s.Name))
	}
	return nil
}

// IDField returns the name of the identifier field.
func (s *Schema) IDField() string {
	return s.Fields[s.idIndex].Name
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Has reports whether the schema declares the field.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
