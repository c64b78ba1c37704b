/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package planner

import (
	"fmt"
	"sort"

	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/schema"
	"github.com/suparena/recordstore/storagemodels"
)

// DefaultLimit bounds an indexed query when the caller asks for no limit.
const DefaultLimit = 1000

// Compiler translates filter descriptors into plans. It never touches a store.
type Compiler struct {
	// DefaultLimit bounds find-style indexed queries without a limit.
	// Zero leaves them unbounded.
	DefaultLimit int
}

// NewCompiler returns a Compiler with the given default limit.
func NewCompiler(defaultLimit int) *Compiler {
	if defaultLimit < 0 {
		defaultLimit = 0
	}
	return &Compiler{DefaultLimit: defaultLimit}
}

// Compile plans a find-style filter. A nil filter matches all records,
// bounded by the default limit.
func (c *Compiler) Compile(f *storagemodels.Filter, s *schema.Schema) (Plan, error) {
	if f == nil {
		f = &storagemodels.Filter{}
	}
	if f.Limit < 0 {
		return nil, errors.NewValidationError("limit", "must not be negative")
	}
	limit := f.Limit
	if limit == 0 {
		limit = c.DefaultLimit
	}
	return compile(f.Where, resolveProjection(f.Fields, s.Names()), f.Limit, limit, s)
}

// CompileWhere plans a where clause for bulk operations (remove, update,
// count). These are never bounded by the default limit.
func (c *Compiler) CompileWhere(w storagemodels.Where, s *schema.Schema) (Plan, error) {
	return compile(w, Projection{}, 0, 0, s)
}

func compile(w storagemodels.Where, proj Projection, keyLimit, queryLimit int, s *schema.Schema) (Plan, error) {
	idField := s.IDField()

	if cond, ok := w[idField]; ok && len(w) == 1 && !cond.IsEmpty() {
		ids, err := identifiers(idField, cond)
		if err != nil {
			return nil, err
		}
		return KeyLookup{Collection: s.Name, IDs: ids, Projection: proj, Limit: keyLimit}, nil
	}

	q := IndexedQuery{
		Params: storagemodels.QueryParams{
			Collection: s.Name,
			Projection: proj.Include,
			Limit:      queryLimit,
		},
		Projection: proj,
		IDField:    idField,
	}

	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	order := s.Names()
	rank := make(map[string]int, len(order))
	for i, n := range order {
		rank[n] = i
	}
	for _, name := range names {
		if _, ok := rank[name]; !ok {
			return nil, errors.NewValidationError(name, fmt.Sprintf("%s has no field %q", s.Name, name))
		}
	}
	sort.Slice(names, func(i, j int) bool { return rank[names[i]] < rank[names[j]] })

	for _, name := range names {
		cond := w[name]
		if cond.IsEmpty() {
			q.MatchNone = true
			continue
		}
		term, err := coerceTerm(s, name, cond)
		if err != nil {
			return nil, err
		}
		if term.Op == storagemodels.OpIn && len(term.Values) == 0 {
			q.MatchNone = true
		}
		q.Params.Terms = append(q.Params.Terms, term)
	}
	if q.MatchNone {
		q.Params.Terms = nil
	}
	return q, nil
}

func identifiers(field string, cond storagemodels.Condition) ([]string, error) {
	switch cond.Op {
	case storagemodels.OpEq:
		id, err := idString(field, cond.Value())
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	case storagemodels.OpIn:
		ids := make([]string, 0, len(cond.Values))
		seen := make(map[string]bool, len(cond.Values))
		for _, v := range cond.Values {
			id, err := idString(field, v)
			if err != nil {
				return nil, err
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		return ids, nil
	default:
		return nil, errors.NewValidationError(field, fmt.Sprintf("unsupported operator %q", cond.Op))
	}
}

func idString(field string, v any) (string, error) {
	cv, err := schema.CoerceValue(schema.Field{Name: field, Type: schema.String}, v)
	if err != nil {
		return "", err
	}
	if cv == nil {
		return "", errors.NewValidationError(field, "identifier must not be null")
	}
	if cv.(string) == "" {
		return "", errors.NewValidationError(field, "identifier is required")
	}
	return cv.(string), nil
}

func coerceTerm(s *schema.Schema, name string, cond storagemodels.Condition) (storagemodels.Term, error) {
	f, _ := s.Field(name)
	switch cond.Op {
	case storagemodels.OpEq, storagemodels.OpIn:
	default:
		return storagemodels.Term{}, errors.NewValidationError(name, fmt.Sprintf("unsupported operator %q", cond.Op))
	}
	values := make([]any, 0, len(cond.Values))
	for _, v := range cond.Values {
		cv, err := schema.CoerceValue(f, v)
		if err != nil {
			return storagemodels.Term{}, err
		}
		values = append(values, cv)
	}
	return storagemodels.Term{Field: name, Condition: storagemodels.Condition{Op: cond.Op, Values: values}}, nil
}
