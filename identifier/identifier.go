/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package identifier generates and validates record identifiers.
package identifier

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/schema"
	"github.com/suparena/recordstore/storagemodels"
)

// Generator produces new identifier values. It must never return "".
type Generator func() string

// NewUUID is the default generator: a random (version 4) UUID.
func NewUUID() string {
	return uuid.NewString()
}

// Manager applies a generator to records of a schema.
type Manager struct {
	generate Generator
}

// NewManager returns a Manager using gen, or NewUUID when gen is nil.
func NewManager(gen Generator) *Manager {
	if gen == nil {
		gen = NewUUID
	}
	return &Manager{generate: gen}
}

// EnsureID returns rec unchanged when its identifier field holds a non-empty
// value. Otherwise it returns a copy with a synthesized identifier.
func (m *Manager) EnsureID(rec storagemodels.Record, s *schema.Schema) (storagemodels.Record, error) {
	field := s.IDField()
	if v, ok := rec[field]; ok && v != nil {
		id, ok := v.(string)
		if !ok {
			return nil, errors.NewValidationError(field, fmt.Sprintf("identifier must be a string, got %T", v))
		}
		if id != "" {
			f, _ := s.Field(field)
			if err := schema.ValidateID(f, id); err != nil {
				return nil, err
			}
			return rec, nil
		}
	}

	id := m.generate()
	if id == "" {
		return nil, fmt.Errorf("identifier generator for %q returned an empty value", s.Name)
	}
	out := rec.Clone()
	if out == nil {
		out = storagemodels.Record{}
	}
	out[field] = id
	return out, nil
}

// Require validates an identifier supplied for a lookup or a destroy.
// The empty string is an invalid argument, never "nothing to do".
func Require(s *schema.Schema, id string) error {
	field := s.IDField()
	if id == "" {
		return errors.NewValidationError(field, "identifier is required")
	}
	return nil
}

// FromRecord extracts the identifier of rec, requiring it to be present.
func FromRecord(rec storagemodels.Record, s *schema.Schema) (string, error) {
	field := s.IDField()
	v, ok := rec[field]
	if !ok || v == nil {
		return "", errors.NewValidationError(field, "identifier is required")
	}
	id, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(field, fmt.Sprintf("identifier must be a string, got %T", v))
	}
	if err := Require(s, id); err != nil {
		return "", err
	}
	return id, nil
}

// Key derives the store key of a record identifier.
func Key(s *schema.Schema, id string) storagemodels.Key {
	return storagemodels.Key{Collection: s.Name, ID: id}
}
