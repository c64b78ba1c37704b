/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/suparena/recordstore/storagemodels"
)

// Typed provides type-safe record operations for a struct type T. Fields
// map to record fields through their json tags; date fields should be
// strings in RFC 3339 form.
type Typed[T any] struct {
	repo *Repository
}

// NewTyped wraps repo for values of type T.
func NewTyped[T any](repo *Repository) *Typed[T] {
	return &Typed[T]{repo: repo}
}

// Repository returns the untyped repository.
func (t *Typed[T]) Repository() *Repository {
	return t.repo
}

// Create stores v and returns it with its identifier populated.
func (t *Typed[T]) Create(ctx context.Context, v T) (T, error) {
	return t.write(ctx, v, t.repo.Create)
}

// Save creates or replaces v, see Repository.Save.
func (t *Typed[T]) Save(ctx context.Context, v T) (T, error) {
	return t.write(ctx, v, t.repo.Save)
}

// FindByID returns the value with the given identifier, or nil.
func (t *Typed[T]) FindByID(ctx context.Context, id string) (*T, error) {
	rec, err := t.repo.FindByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	v, err := FromRecord[T](rec)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Find returns the values matching f.
func (t *Typed[T]) Find(ctx context.Context, f *storagemodels.Filter) ([]T, error) {
	recs, err := t.repo.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(recs))
	for i, rec := range recs {
		if out[i], err = FromRecord[T](rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Destroy removes v by its identifier.
func (t *Typed[T]) Destroy(ctx context.Context, v T) (storagemodels.Result, error) {
	rec, err := ToRecord(v)
	if err != nil {
		return storagemodels.Result{}, err
	}
	return t.repo.Destroy(ctx, rec)
}

// DestroyByID removes the value with the given identifier.
func (t *Typed[T]) DestroyByID(ctx context.Context, id string) (storagemodels.Result, error) {
	return t.repo.DestroyByID(ctx, id)
}

func (t *Typed[T]) write(ctx context.Context, v T, fn func(context.Context, storagemodels.Record) (storagemodels.Record, error)) (T, error) {
	var zero T
	rec, err := ToRecord(v)
	if err != nil {
		return zero, err
	}
	stored, err := fn(ctx, rec)
	if err != nil {
		return zero, err
	}
	return FromRecord[T](stored)
}

// ToRecord converts a struct into a Record keyed by json tag names.
// Fields tagged omitempty are left out when zero.
func ToRecord(v any) (storagemodels.Record, error) {
	rec := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &rec,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("failed to convert %T to record: %w", v, err)
	}
	return storagemodels.Record(rec), nil
}

// FromRecord decodes a Record into a value of type T. Numbers are
// converted to the field kinds of T.
func FromRecord[T any](rec storagemodels.Record) (T, error) {
	var v T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &v,
	})
	if err != nil {
		return v, err
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return v, fmt.Errorf("failed to convert record to %T: %w", v, err)
	}
	return v, nil
}
