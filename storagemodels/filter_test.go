/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"testing"

	"github.com/suparena/recordstore/errors"
)

func TestParseFilter(t *testing.T) {
	t.Run("FullForm", func(t *testing.T) {
		f, err := ParseFilter([]byte(`{"where":{"name":"Charlie","id":{"inq":["0","1"]}},"fields":{"name":true,"age":false},"limit":2}`))
		if err != nil {
			t.Fatalf("ParseFilter failed: %v", err)
		}
		if got := f.Where["name"]; got.Op != OpEq || got.Value() != "Charlie" {
			t.Errorf("unexpected name condition: %+v", got)
		}
		if got := f.Where["id"]; got.Op != OpIn || len(got.Values) != 2 || got.Values[1] != "1" {
			t.Errorf("unexpected id condition: %+v", got)
		}
		if !f.Fields["name"] || f.Fields["age"] {
			t.Errorf("unexpected fields: %+v", f.Fields)
		}
		if f.Limit != 2 {
			t.Errorf("Expected limit 2, got %d", f.Limit)
		}
	})

	t.Run("EmptyInputs", func(t *testing.T) {
		for _, in := range []string{``, `null`, `{}`, `{"where":{}}`} {
			f, err := ParseFilter([]byte(in))
			if err != nil {
				t.Fatalf("ParseFilter(%q) failed: %v", in, err)
			}
			if len(f.Where) != 0 {
				t.Errorf("ParseFilter(%q): expected empty where, got %+v", in, f.Where)
			}
		}
	})

	t.Run("EmptyConstraintAndEmptySet", func(t *testing.T) {
		w, err := ParseWhere([]byte(`{"id":{}}`))
		if err != nil {
			t.Fatalf("ParseWhere failed: %v", err)
		}
		if !w["id"].IsEmpty() {
			t.Errorf("Expected empty constraint, got %+v", w["id"])
		}

		w, err = ParseWhere([]byte(`{"id":{"in":[]}}`))
		if err != nil {
			t.Fatalf("ParseWhere failed: %v", err)
		}
		if w["id"].Op != OpIn || len(w["id"].Values) != 0 {
			t.Errorf("Expected empty inq, got %+v", w["id"])
		}
	})

	t.Run("FieldsAsArray", func(t *testing.T) {
		f, err := ParseFilter([]byte(`{"fields":["name"]}`))
		if err != nil {
			t.Fatalf("ParseFilter failed: %v", err)
		}
		if len(f.Fields) != 1 || !f.Fields["name"] {
			t.Errorf("unexpected fields: %+v", f.Fields)
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		cases := map[string]string{
			"unknown operator":  `{"where":{"age":{"gt":20}}}`,
			"two operators":     `{"where":{"age":{"eq":20,"inq":[20]}}}`,
			"bare array":        `{"where":{"id":["0"]}}`,
			"negative limit":    `{"limit":-1}`,
			"inq not an array":  `{"where":{"id":{"inq":"0"}}}`,
			"not json":          `{where`,
			"fields wrong type": `{"fields":"name"}`,
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ParseFilter([]byte(in))
				if !errors.IsValidationError(err) {
					t.Errorf("Expected validation error, got %v", err)
				}
			})
		}
	})
}

func TestConditionBuilders(t *testing.T) {
	if !Empty().IsEmpty() {
		t.Error("Empty() should be empty")
	}
	if c := In(); c.Values == nil || len(c.Values) != 0 {
		t.Errorf("In() should be an explicit empty set, got %+v", c)
	}
	if Eq("x").Value() != "x" {
		t.Error("Eq should carry its operand")
	}
}

func TestRecordAndKey(t *testing.T) {
	r := Record{"id": "0", "age": 24}
	c := r.Clone()
	c["id"] = "1"
	if r["id"] != "0" {
		t.Error("Clone should not alias the original")
	}
	if id, ok := r.StringField("id"); !ok || id != "0" {
		t.Errorf("StringField returned %q, %v", id, ok)
	}
	if _, ok := r.StringField("age"); ok {
		t.Error("StringField should reject non-strings")
	}

	k := Key{Collection: "person", ID: "0"}
	if k.String() != "person::0" {
		t.Errorf("unexpected key rendering %q", k.String())
	}
}
