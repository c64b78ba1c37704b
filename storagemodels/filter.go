/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/suparena/recordstore/errors"
)

// Op names a predicate operator.
type Op string

const (
	// OpEq is field equality.
	OpEq Op = "eq"
	// OpIn is set membership.
	OpIn Op = "inq"
)

// Condition is the constraint placed on one field. The zero Condition is
// the empty constraint "{}", which matches nothing.
type Condition struct {
	Op     Op
	Values []any
}

// Eq builds an equality condition.
func Eq(v any) Condition {
	return Condition{Op: OpEq, Values: []any{v}}
}

// In builds a set-membership condition. In() with no values is an explicit
// empty set.
func In(vs ...any) Condition {
	if vs == nil {
		vs = []any{}
	}
	return Condition{Op: OpIn, Values: vs}
}

// Empty builds the empty constraint.
func Empty() Condition {
	return Condition{}
}

// IsEmpty reports whether c carries no operator.
func (c Condition) IsEmpty() bool {
	return c.Op == ""
}

// Value returns the operand of an equality condition.
func (c Condition) Value() any {
	if len(c.Values) == 0 {
		return nil
	}
	return c.Values[0]
}

// Where maps field names to their constraints. Constraints on different
// fields are conjoined.
type Where map[string]Condition

// Fields is a projection: true includes a field, false excludes it.
type Fields map[string]bool

// Filter is the generic filter descriptor accepted by find-like operations.
type Filter struct {
	Where  Where
	Fields Fields
	// Limit caps the result length; 0 means not requested.
	Limit int
}

// ParseFilter decodes the JSON filter form
//
//	{"where": {"name": "Charlie", "id": {"inq": ["0", "1"]}}, "fields": {"name": true}, "limit": 2}
//
// Operators other than eq and inq (alias in) are rejected.
func ParseFilter(data []byte) (*Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &Filter{}, nil
	}

	var raw struct {
		Where  json.RawMessage `json:"where"`
		Fields json.RawMessage `json:"fields"`
		Limit  *int            `json:"limit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewValidationError("", fmt.Sprintf("malformed filter: %v", err))
	}

	f := &Filter{}
	if len(raw.Where) > 0 {
		w, err := ParseWhere(raw.Where)
		if err != nil {
			return nil, err
		}
		f.Where = w
	}
	if len(raw.Fields) > 0 {
		fields, err := parseFields(raw.Fields)
		if err != nil {
			return nil, err
		}
		f.Fields = fields
	}
	if raw.Limit != nil {
		if *raw.Limit < 0 {
			return nil, errors.NewValidationError("limit", "must not be negative")
		}
		f.Limit = *raw.Limit
	}
	return f, nil
}

// ParseWhere decodes a JSON where clause on its own, as accepted by remove.
func ParseWhere(data []byte) (Where, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.NewValidationError("where", fmt.Sprintf("malformed where clause: %v", err))
	}

	w := make(Where, len(fields))
	for name, rawCond := range fields {
		cond, err := parseCondition(name, rawCond)
		if err != nil {
			return nil, err
		}
		w[name] = cond
	}
	return w, nil
}

func parseCondition(field string, data json.RawMessage) (Condition, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var ops map[string]json.RawMessage
		if err := json.Unmarshal(data, &ops); err != nil {
			return Condition{}, errors.NewValidationError(field, fmt.Sprintf("malformed condition: %v", err))
		}
		if len(ops) == 0 {
			return Empty(), nil
		}
		if len(ops) > 1 {
			return Condition{}, errors.NewValidationError(field, "only one operator per field is supported")
		}
		for op, operand := range ops {
			switch op {
			case "inq", "in":
				var values []any
				if err := json.Unmarshal(operand, &values); err != nil {
					return Condition{}, errors.NewValidationError(field, "inq expects an array")
				}
				return In(values...), nil
			case "eq":
				var v any
				if err := json.Unmarshal(operand, &v); err != nil {
					return Condition{}, errors.NewValidationError(field, fmt.Sprintf("malformed eq operand: %v", err))
				}
				return Eq(v), nil
			default:
				return Condition{}, errors.NewValidationError(field, fmt.Sprintf("unsupported operator %q", op))
			}
		}
	}
	if len(data) > 0 && data[0] == '[' {
		return Condition{}, errors.NewValidationError(field, "arrays require the inq operator")
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Condition{}, errors.NewValidationError(field, fmt.Sprintf("malformed value: %v", err))
	}
	return Eq(v), nil
}

// parseFields accepts either {"name": true, "age": false} or ["name", "age"].
func parseFields(data json.RawMessage) (Fields, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, errors.NewValidationError("fields", "expected an array of field names")
		}
		fields := make(Fields, len(names))
		for _, n := range names {
			fields[n] = true
		}
		return fields, nil
	}

	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.NewValidationError("fields", "expected a map of field name to boolean")
	}
	return fields, nil
}
