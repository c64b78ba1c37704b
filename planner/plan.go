/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package planner

import (
	"sort"

	"github.com/suparena/recordstore/storagemodels"
)

// Path names the execution path a plan takes.
type Path string

const (
	// PathKey is the direct key-value path: immediately consistent.
	PathKey Path = "key"
	// PathIndex is the secondary-index path: eventually consistent.
	PathIndex Path = "index"
)

// Plan is a compiled filter: either a KeyLookup or an IndexedQuery.
type Plan interface {
	Path() Path
	plan()
}

// KeyLookup resolves a filter that constrains only the identifier.
// IDs are unique and keep the caller's order. A zero-length IDs slice
// matches nothing and is never sent to a store.
type KeyLookup struct {
	Collection string
	IDs        []string
	Projection Projection
	Limit      int
}

func (KeyLookup) Path() Path { return PathKey }

func (KeyLookup) plan() {}

// IndexedQuery resolves every other filter shape.
type IndexedQuery struct {
	// MatchNone marks a predicate that can match no record, such as an
	// empty constraint object. Executing it never reaches the store.
	MatchNone bool
	Params    storagemodels.QueryParams
	// IDField names the identifier field, used to resolve matches to keys.
	IDField string
	// Projection is applied to every returned record; Params.Projection
	// carries only the include list a backend may push down.
	Projection Projection
}

func (IndexedQuery) Path() Path { return PathIndex }

func (IndexedQuery) plan() {}

// Projection selects returned fields. When Include is non-empty only those
// fields are kept; Exclude always wins.
type Projection struct {
	Include []string
	Exclude []string
}

// IsZero reports whether the projection keeps every field.
func (p Projection) IsZero() bool {
	return len(p.Include) == 0 && len(p.Exclude) == 0
}

// Apply returns a projected copy of rec. A zero projection returns rec.
func (p Projection) Apply(rec storagemodels.Record) storagemodels.Record {
	if p.IsZero() || rec == nil {
		return rec
	}
	var out storagemodels.Record
	if len(p.Include) > 0 {
		out = make(storagemodels.Record, len(p.Include))
		for _, name := range p.Include {
			if v, ok := rec[name]; ok {
				out[name] = v
			}
		}
	} else {
		out = rec.Clone()
	}
	for _, name := range p.Exclude {
		delete(out, name)
	}
	return out
}

func resolveProjection(fields storagemodels.Fields, order []string) Projection {
	if len(fields) == 0 {
		return Projection{}
	}
	rank := make(map[string]int, len(order))
	for i, n := range order {
		rank[n] = i
	}
	var p Projection
	for name, keep := range fields {
		if keep {
			p.Include = append(p.Include, name)
		} else {
			p.Exclude = append(p.Exclude, name)
		}
	}
	byRank := func(names []string) {
		sort.Slice(names, func(i, j int) bool {
			ri, iok := rank[names[i]]
			rj, jok := rank[names[j]]
			if iok != jok {
				return iok
			}
			if iok {
				return ri < rj
			}
			return names[i] < names[j]
		})
	}
	byRank(p.Include)
	byRank(p.Exclude)
	return p
}
