/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory DataStore for tests and local runs.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/planner"
	"github.com/suparena/recordstore/storagemodels"
)

// DataStore is an in-memory implementation of datastore.DataStore.
//
// By default queries read the live data. WithIndexLag makes queries read a
// snapshot that only advances on SyncIndex, which reproduces the delayed
// visibility of a secondary index.
type DataStore struct {
	mu        sync.RWMutex
	data      map[storagemodels.Key]storagemodels.Record
	index     map[storagemodels.Key]storagemodels.Record
	lagging   bool
	queryFunc func(ctx context.Context, params *storagemodels.QueryParams) ([]storagemodels.Record, error)

	getError    error
	setError    error
	removeError error
	queryError  error
	keyErrors   map[string]error

	gets    int
	sets    int
	removes int
	queries int
}

// New creates an empty mock DataStore.
func New() *DataStore {
	return &DataStore{
		data:      make(map[storagemodels.Key]storagemodels.Record),
		keyErrors: make(map[string]error),
	}
}

// WithIndexLag makes Query observe the state captured by the last SyncIndex.
func (m *DataStore) WithIndexLag() *DataStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lagging = true
	m.index = copyData(m.data)
	return m
}

// SyncIndex lets the simulated index catch up with the key path.
func (m *DataStore) SyncIndex() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = copyData(m.data)
}

// WithQueryFunc sets a custom query function for testing
func (m *DataStore) WithQueryFunc(f func(ctx context.Context, params *storagemodels.QueryParams) ([]storagemodels.Record, error)) *DataStore {
	m.queryFunc = f
	return m
}

// WithGetError makes Get operations return an error
func (m *DataStore) WithGetError(err error) *DataStore {
	m.getError = err
	return m
}

// WithSetError makes Set operations return an error
func (m *DataStore) WithSetError(err error) *DataStore {
	m.setError = err
	return m
}

// WithRemoveError makes Remove operations return an error
func (m *DataStore) WithRemoveError(err error) *DataStore {
	m.removeError = err
	return m
}

// WithQueryError makes Query operations return an error
func (m *DataStore) WithQueryError(err error) *DataStore {
	m.queryError = err
	return m
}

// WithKeyError makes every key-path operation on the given id fail.
func (m *DataStore) WithKeyError(id string, err error) *DataStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyErrors[id] = err
	return m
}

// Get returns a copy of the record under key, or nil when absent.
func (m *DataStore) Get(ctx context.Context, key storagemodels.Key) (storagemodels.Record, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()

	if err := m.keyError(m.getError, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key].Clone(), nil
}

// Set stores a copy of rec under key.
func (m *DataStore) Set(ctx context.Context, key storagemodels.Key, rec storagemodels.Record, opts storagemodels.SetOptions) error {
	m.mu.Lock()
	m.sets++
	m.mu.Unlock()

	if err := m.keyError(m.setError, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if key.ID == "" {
		return errors.NewValidationError("key", "empty identifier")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; exists && opts.FailIfExists {
		return errors.NewAlreadyExistsError(key.Collection, key.ID)
	}
	m.data[key] = rec.Clone()
	return nil
}

// Remove deletes the record under key.
func (m *DataStore) Remove(ctx context.Context, key storagemodels.Key) (bool, error) {
	m.mu.Lock()
	m.removes++
	m.mu.Unlock()

	if err := m.keyError(m.removeError, key); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

// Query evaluates the terms against the collection, ordered by identifier.
func (m *DataStore) Query(ctx context.Context, params *storagemodels.QueryParams) ([]storagemodels.Record, error) {
	m.mu.Lock()
	m.queries++
	m.mu.Unlock()

	if m.queryError != nil {
		return nil, m.queryError
	}
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matcher, err := planner.NewMatcher(params.Terms)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	source := m.data
	if m.lagging {
		source = m.index
	}
	keys := make([]storagemodels.Key, 0, len(source))
	for k := range source {
		if k.Collection == params.Collection {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })

	var results []storagemodels.Record
	for _, k := range keys {
		rec := source[k]
		ok, err := matcher.Match(rec)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if !ok {
			continue
		}
		results = append(results, project(rec, params.Projection))
		if params.Limit > 0 && len(results) == params.Limit {
			break
		}
	}
	m.mu.RUnlock()

	return results, nil
}

// Helper methods for testing

// Calls reports how many Get, Set, Remove and Query calls reached the store.
func (m *DataStore) Calls() (gets, sets, removes, queries int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets, m.sets, m.removes, m.queries
}

// QueryCalls returns the number of Query calls.
func (m *DataStore) QueryCalls() int {
	_, _, _, q := m.Calls()
	return q
}

// Len returns the number of stored records
func (m *DataStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Clear removes all data and resets the index snapshot.
func (m *DataStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[storagemodels.Key]storagemodels.Record)
	if m.lagging {
		m.index = make(map[storagemodels.Key]storagemodels.Record)
	}
}

func (m *DataStore) keyError(global error, key storagemodels.Key) error {
	if global != nil {
		return global
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keyErrors[key.ID]
}

func copyData(src map[storagemodels.Key]storagemodels.Record) map[storagemodels.Key]storagemodels.Record {
	out := make(map[storagemodels.Key]storagemodels.Record, len(src))
	for k, v := range src {
		out[k] = v.Clone()
	}
	return out
}

func project(rec storagemodels.Record, fields []string) storagemodels.Record {
	if len(fields) == 0 {
		return rec.Clone()
	}
	out := make(storagemodels.Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}
