/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/schema"
)

// Registry maps model names to their schemas and key layouts.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	schemas   map[string]*schema.Schema
	indexMaps map[string]map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		schemas:   make(map[string]*schema.Schema),
		indexMaps: make(map[string]map[string]string),
	}
}

// Register adds a model. The schema's Keys override the default layout.
func (r *Registry) Register(s *schema.Schema) error {
	if s == nil || s.Name == "" {
		return errors.NewValidationError("name", "model name is required")
	}
	if err := s.Resolve(); err != nil {
		return err
	}
	indexMap := DefaultIndexMap()
	if len(s.Keys) > 0 {
		indexMap = s.Keys
		if err := ValidateIndexMap(indexMap); err != nil {
			return fmt.Errorf("model %q: %w", s.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.Name]; exists {
		return fmt.Errorf("model %q already registered", s.Name)
	}
	r.schemas[s.Name] = s
	r.indexMaps[s.Name] = indexMap
	return nil
}

// Schema returns the schema registered under name.
func (r *Registry) Schema(name string) (*schema.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	if !ok {
		return nil, errors.NewUnknownModelError(name)
	}
	return s, nil
}

// IndexMap returns the key layout of a collection. Unregistered collections
// use DefaultIndexMap.
func (r *Registry) IndexMap(collection string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.indexMaps[collection]; ok {
		return m
	}
	return DefaultIndexMap()
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
