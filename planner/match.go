/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package planner

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/suparena/recordstore/storagemodels"
)

// Matcher evaluates query terms against records for backends that have no
// query language of their own. Terms compile to an expr program such as
//
//	r["name"] == p[0] && r["id"] in p[1]
//
// with operands bound by position.
type Matcher struct {
	source  string
	program *vm.Program
	params  []any
}

type matchEnv struct {
	R map[string]any `expr:"r"`
	P []any          `expr:"p"`
}

// NewMatcher compiles terms into a Matcher. No terms match every record.
func NewMatcher(terms []storagemodels.Term) (*Matcher, error) {
	clauses := make([]string, 0, len(terms))
	params := make([]any, 0, len(terms))
	for i, t := range terms {
		switch t.Op {
		case storagemodels.OpEq:
			clauses = append(clauses, fmt.Sprintf("r[%q] == p[%d]", t.Field, i))
			params = append(params, t.Value())
		case storagemodels.OpIn:
			clauses = append(clauses, fmt.Sprintf("r[%q] in p[%d]", t.Field, i))
			params = append(params, t.Values)
		default:
			return nil, fmt.Errorf("matcher: unsupported operator %q on %q", t.Op, t.Field)
		}
	}
	source := "true"
	if len(clauses) > 0 {
		source = strings.Join(clauses, " && ")
	}

	program, err := expr.Compile(source, expr.Env(matchEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("matcher: compile %q: %w", source, err)
	}
	return &Matcher{source: source, program: program, params: params}, nil
}

// Source returns the expression the matcher evaluates.
func (m *Matcher) Source() string {
	return m.source
}

// Match reports whether rec satisfies every term.
func (m *Matcher) Match(rec storagemodels.Record) (bool, error) {
	out, err := expr.Run(m.program, matchEnv{R: rec, P: m.params})
	if err != nil {
		return false, fmt.Errorf("matcher: evaluate %q: %w", m.source, err)
	}
	return out.(bool), nil
}
