/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/storagemodels"
)

// Coerce returns a copy of rec with every declared field converted to its
// declared type. Numbers become float64 and dates become RFC 3339 strings so
// every backend round-trips the same representation. Undeclared fields are
// kept as given.
func (s *Schema) Coerce(rec storagemodels.Record) (storagemodels.Record, error) {
	out := make(storagemodels.Record, len(rec))
	for name, v := range rec {
		f, ok := s.Field(name)
		if !ok {
			out[name] = v
			continue
		}
		cv, err := CoerceValue(f, v)
		if err != nil {
			return nil, err
		}
		out[name] = cv
	}
	return out, nil
}

// CoerceValue converts v to the field's declared type. nil passes through.
func CoerceValue(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case String:
		return toString(f, v)
	case Number:
		return toNumber(f, v)
	case Boolean:
		return toBool(f, v)
	case Date:
		return toDate(f, v)
	default:
		return v, nil
	}
}

// ValidateID checks an identifier value against the field format.
func ValidateID(f Field, id string) error {
	if f.Format == "uuid" && !strfmt.IsUUID(id) {
		return errors.NewValidationError(f.Name, fmt.Sprintf("%q is not a uuid", id))
	}
	return nil
}

func toString(f Field, v any) (any, error) {
	switch tv := v.(type) {
	case string:
		return tv, nil
	case fmt.Stringer:
		return tv.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(tv), nil
	case float32:
		return strconv.FormatFloat(float64(tv), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64), nil
	default:
		return nil, typeError(f, v)
	}
}

func toNumber(f Field, v any) (any, error) {
	switch tv := v.(type) {
	case float64:
		return tv, nil
	case float32:
		return float64(tv), nil
	case int:
		return float64(tv), nil
	case int8:
		return float64(tv), nil
	case int16:
		return float64(tv), nil
	case int32:
		return float64(tv), nil
	case int64:
		return float64(tv), nil
	case uint:
		return float64(tv), nil
	case uint8:
		return float64(tv), nil
	case uint16:
		return float64(tv), nil
	case uint32:
		return float64(tv), nil
	case uint64:
		return float64(tv), nil
	case json.Number:
		n, err := tv.Float64()
		if err != nil {
			return nil, typeError(f, v)
		}
		return n, nil
	case string:
		n, err := strconv.ParseFloat(tv, 64)
		if err != nil {
			return nil, typeError(f, v)
		}
		return n, nil
	default:
		return nil, typeError(f, v)
	}
}

func toBool(f Field, v any) (any, error) {
	switch tv := v.(type) {
	case bool:
		return tv, nil
	case string:
		b, err := strconv.ParseBool(tv)
		if err != nil {
			return nil, typeError(f, v)
		}
		return b, nil
	default:
		return nil, typeError(f, v)
	}
}

func toDate(f Field, v any) (any, error) {
	switch tv := v.(type) {
	case strfmt.DateTime:
		return tv.String(), nil
	case *strfmt.DateTime:
		if tv == nil {
			return nil, nil
		}
		return tv.String(), nil
	case time.Time:
		return strfmt.DateTime(tv).String(), nil
	case string:
		dt, err := strfmt.ParseDateTime(tv)
		if err != nil {
			return nil, typeError(f, v)
		}
		return dt.String(), nil
	default:
		return nil, typeError(f, v)
	}
}

func typeError(f Field, v any) error {
	return errors.NewValidationError(f.Name, fmt.Sprintf("cannot use %v (%T) as %s", v, v, f.Type))
}
