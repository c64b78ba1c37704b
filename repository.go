/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/executor"
	"github.com/suparena/recordstore/identifier"
	"github.com/suparena/recordstore/planner"
	"github.com/suparena/recordstore/schema"
	"github.com/suparena/recordstore/storagemodels"
)

// Repository exposes the record operations of one model. Every call is a
// fresh round trip to the store; nothing is cached between calls.
//
// Reads by identifier and writes are strongly consistent. Finds, counts and
// bulk mutations that cannot be reduced to identifiers run on the store's
// secondary index and may not observe writes made a moment earlier.
type Repository struct {
	schema   *schema.Schema
	ids      *identifier.Manager
	compiler *planner.Compiler
	exec     *executor.Executor
	logger   *slog.Logger
}

// Schema returns the model schema.
func (r *Repository) Schema() *schema.Schema {
	return r.schema
}

// Name returns the model (collection) name.
func (r *Repository) Name() string {
	return r.schema.Name
}

// Create stores a new record and returns it with its identifier. A
// colliding identifier fails with an AlreadyExistsError and leaves the
// stored record untouched.
func (r *Repository) Create(ctx context.Context, rec storagemodels.Record) (storagemodels.Record, error) {
	prepared, id, err := r.prepare(rec)
	if err != nil {
		return nil, err
	}
	if err := r.exec.Set(ctx, r.key(id), prepared, storagemodels.SetOptions{FailIfExists: true}); err != nil {
		return nil, err
	}
	return prepared, nil
}

// CreateAll stores independent records. Every input is validated before the
// first write and any invalid input aborts the call. Store failures stay
// isolated: the created records are returned in input order together with a
// *errors.BatchError describing the rest. When no record could be created
// the call fails as a whole.
func (r *Repository) CreateAll(ctx context.Context, recs []storagemodels.Record) ([]storagemodels.Record, error) {
	prepared := make([]storagemodels.Record, len(recs))
	ids := make([]string, len(recs))
	for i, rec := range recs {
		p, id, err := r.prepare(rec)
		if err != nil {
			given, _ := rec.StringField(r.schema.IDField())
			return nil, errors.ItemError{Index: i, ID: given, Err: err}
		}
		prepared[i], ids[i] = p, id
	}

	agg := r.exec.SetAll(ctx, r.schema.Name, ids, prepared, storagemodels.SetOptions{FailIfExists: true})
	if err := agg.Fatal(); err != nil {
		return nil, err
	}
	if err := agg.Err(); err != nil {
		r.logger.WarnContext(ctx, "bulk create partially failed",
			"collection", r.schema.Name,
			"count", agg.Count(),
			"failed", len(agg.Failures()))
		return agg.Records(), err
	}
	return agg.Records(), nil
}

// FindByID returns the record with the given identifier, or nil when there
// is none. The empty identifier is an invalid argument.
func (r *Repository) FindByID(ctx context.Context, id string) (storagemodels.Record, error) {
	if err := identifier.Require(r.schema, id); err != nil {
		return nil, err
	}
	return r.exec.Get(ctx, r.key(id))
}

// FindByIDs returns the records with the given identifiers in request
// order. Identifiers that do not resolve are omitted.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]storagemodels.Record, error) {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return r.Find(ctx, &storagemodels.Filter{
		Where: storagemodels.Where{r.schema.IDField(): storagemodels.In(values...)},
	})
}

// Find returns the records matching f, projected and limited. A nil filter
// matches every record up to the default limit.
func (r *Repository) Find(ctx context.Context, f *storagemodels.Filter) ([]storagemodels.Record, error) {
	plan, err := r.compiler.Compile(f, r.schema)
	if err != nil {
		return nil, err
	}
	return r.exec.Find(ctx, plan)
}

// FindOne returns the first record matching f, or nil.
func (r *Repository) FindOne(ctx context.Context, f *storagemodels.Filter) (storagemodels.Record, error) {
	one := storagemodels.Filter{Limit: 1}
	if f != nil {
		one.Where, one.Fields = f.Where, f.Fields
	}
	recs, err := r.Find(ctx, &one)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// UpdateOrCreate writes rec under its identifier, replacing any stored
// record. A record without an identifier receives a new one.
func (r *Repository) UpdateOrCreate(ctx context.Context, rec storagemodels.Record) (storagemodels.Record, error) {
	prepared, id, err := r.prepare(rec)
	if err != nil {
		return nil, err
	}
	if err := r.exec.Set(ctx, r.key(id), prepared, storagemodels.SetOptions{}); err != nil {
		return nil, err
	}
	return prepared, nil
}

// Save creates rec when it carries no identifier and replaces the stored
// record otherwise.
func (r *Repository) Save(ctx context.Context, rec storagemodels.Record) (storagemodels.Record, error) {
	if id, _ := rec.StringField(r.schema.IDField()); id == "" {
		return r.Create(ctx, rec)
	}
	return r.UpdateOrCreate(ctx, rec)
}

// UpdateAttributes merges patch into the stored record with the given
// identifier and returns the result, or nil when there is no such record.
// The patch may not change the identifier.
func (r *Repository) UpdateAttributes(ctx context.Context, id string, patch storagemodels.Record) (storagemodels.Record, error) {
	if err := identifier.Require(r.schema, id); err != nil {
		return nil, err
	}
	coerced, err := r.checkPatch(patch, id)
	if err != nil {
		return nil, err
	}

	current, err := r.exec.Get(ctx, r.key(id))
	if err != nil || current == nil {
		return nil, err
	}
	merged := merge(current, coerced)
	if err := r.exec.Set(ctx, r.key(id), merged, storagemodels.SetOptions{}); err != nil {
		return nil, err
	}
	return merged, nil
}

// UpdateAll merges patch into every record matching where and returns how
// many were written. Records that fail to update are logged and left out of
// the count.
func (r *Repository) UpdateAll(ctx context.Context, where storagemodels.Where, patch storagemodels.Record) (storagemodels.Result, error) {
	coerced, err := r.checkPatch(patch, "")
	if err != nil {
		return storagemodels.Result{}, err
	}
	plan, err := r.compiler.CompileWhere(where, r.schema)
	if err != nil {
		return storagemodels.Result{}, err
	}
	return r.exec.Update(ctx, plan, func(rec storagemodels.Record) (storagemodels.Record, error) {
		return merge(rec, coerced), nil
	})
}

// DestroyByID removes the record with the given identifier. Count is 1 when
// it existed and 0 otherwise. The empty identifier is an invalid argument.
func (r *Repository) DestroyByID(ctx context.Context, id string) (storagemodels.Result, error) {
	if err := identifier.Require(r.schema, id); err != nil {
		return storagemodels.Result{}, err
	}
	removed, err := r.exec.RemoveKey(ctx, r.key(id))
	if err != nil {
		return storagemodels.Result{}, err
	}
	if removed {
		return storagemodels.Result{Count: 1}, nil
	}
	return storagemodels.Result{}, nil
}

// Destroy removes rec by its identifier.
func (r *Repository) Destroy(ctx context.Context, rec storagemodels.Record) (storagemodels.Result, error) {
	id, err := identifier.FromRecord(rec, r.schema)
	if err != nil {
		return storagemodels.Result{}, err
	}
	return r.DestroyByID(ctx, id)
}

// Remove deletes every record matching where and returns how many existed.
// A nil where removes the whole collection.
func (r *Repository) Remove(ctx context.Context, where storagemodels.Where) (storagemodels.Result, error) {
	plan, err := r.compiler.CompileWhere(where, r.schema)
	if err != nil {
		return storagemodels.Result{}, err
	}
	return r.exec.Remove(ctx, plan)
}

// Count returns the number of records matching where.
func (r *Repository) Count(ctx context.Context, where storagemodels.Where) (int, error) {
	plan, err := r.compiler.CompileWhere(where, r.schema)
	if err != nil {
		return 0, err
	}
	return r.exec.Count(ctx, plan)
}

// Exists reports whether a record with the given identifier is stored.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	rec, err := r.FindByID(ctx, id)
	return rec != nil, err
}

// prepare coerces rec to the schema and makes sure it has an identifier.
func (r *Repository) prepare(rec storagemodels.Record) (storagemodels.Record, string, error) {
	coerced, err := r.schema.Coerce(rec)
	if err != nil {
		return nil, "", err
	}
	withID, err := r.ids.EnsureID(coerced, r.schema)
	if err != nil {
		return nil, "", err
	}
	id, _ := withID.StringField(r.schema.IDField())
	return withID, id, nil
}

// checkPatch coerces a patch. Its identifier, when present, must equal id.
func (r *Repository) checkPatch(patch storagemodels.Record, id string) (storagemodels.Record, error) {
	coerced, err := r.schema.Coerce(patch)
	if err != nil {
		return nil, err
	}
	field := r.schema.IDField()
	if v, ok := coerced[field]; ok {
		if pid, _ := v.(string); pid != id || id == "" {
			return nil, errors.NewValidationError(field, fmt.Sprintf("identifier cannot be changed to %v", v))
		}
	}
	return coerced, nil
}

func (r *Repository) key(id string) storagemodels.Key {
	return identifier.Key(r.schema, id)
}

func merge(base, patch storagemodels.Record) storagemodels.Record {
	out := base.Clone()
	if out == nil {
		out = storagemodels.Record{}
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
