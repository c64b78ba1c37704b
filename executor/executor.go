/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/suparena/recordstore/consistency"
	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/metrics"
	"github.com/suparena/recordstore/planner"
	"github.com/suparena/recordstore/storagemodels"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds the in-flight key requests of one batch.
const DefaultBatchConcurrency = 8

// Options configures an Executor. Every field is optional.
type Options struct {
	Tracker          *consistency.Tracker
	Metrics          *metrics.Collector
	Logger           *slog.Logger
	BatchConcurrency int
}

// Executor routes compiled plans to a DataStore. It is the only component
// that performs I/O and keeps no state across calls other than the
// consistency tracker.
type Executor struct {
	store       datastore.DataStore
	tracker     *consistency.Tracker
	metrics     *metrics.Collector
	logger      *slog.Logger
	concurrency int
}

// New creates an Executor over store.
func New(store datastore.DataStore, opts Options) *Executor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracker == nil {
		opts.Tracker = consistency.NewTracker(consistency.Config{}, opts.Logger, opts.Metrics)
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = DefaultBatchConcurrency
	}
	return &Executor{
		store:       store,
		tracker:     opts.Tracker,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		concurrency: opts.BatchConcurrency,
	}
}

// Tracker returns the consistency tracker fed by this executor.
func (e *Executor) Tracker() *consistency.Tracker {
	return e.tracker
}

// Get reads one record by key. An absent key yields nil, nil.
func (e *Executor) Get(ctx context.Context, key storagemodels.Key) (rec storagemodels.Record, err error) {
	defer e.observe(key.Collection, "get", planner.PathKey, time.Now(), &err)
	return e.store.Get(ctx, key)
}

// Set writes one record by key and marks the collection as mutated.
func (e *Executor) Set(ctx context.Context, key storagemodels.Key, rec storagemodels.Record, opts storagemodels.SetOptions) (err error) {
	defer e.observe(key.Collection, "set", planner.PathKey, time.Now(), &err)
	if err = e.store.Set(ctx, key, rec, opts); err != nil {
		return err
	}
	e.tracker.Mark(key.Collection)
	return nil
}

// RemoveKey deletes one record by key and reports whether it existed.
func (e *Executor) RemoveKey(ctx context.Context, key storagemodels.Key) (removed bool, err error) {
	defer e.observe(key.Collection, "remove", planner.PathKey, time.Now(), &err)
	removed, err = e.store.Remove(ctx, key)
	if err != nil {
		return false, err
	}
	if removed {
		e.tracker.Mark(key.Collection)
	}
	return removed, nil
}

// Find executes a plan and returns the matching records, projected and
// limited. Key lookups keep the requested id order and omit absent ids.
func (e *Executor) Find(ctx context.Context, plan planner.Plan) (recs []storagemodels.Record, err error) {
	defer e.observe(collectionOf(plan), "find", plan.Path(), time.Now(), &err)

	switch p := plan.(type) {
	case planner.KeyLookup:
		agg, err := e.lookup(ctx, "find", p.Collection, p.IDs)
		if err != nil {
			return nil, err
		}
		return shape(agg.Records(), p.Projection, p.Limit), nil

	case planner.IndexedQuery:
		recs, err := e.query(ctx, "find", p, p.Params)
		if err != nil {
			return nil, err
		}
		return shape(recs, p.Projection, p.Params.Limit), nil

	default:
		return nil, fmt.Errorf("executor: unsupported plan %T", plan)
	}
}

// Count returns the number of records a plan matches.
func (e *Executor) Count(ctx context.Context, plan planner.Plan) (n int, err error) {
	defer e.observe(collectionOf(plan), "count", plan.Path(), time.Now(), &err)
	ids, err := e.resolve(ctx, "count", plan)
	return len(ids), err
}

// Remove deletes every record a plan matches and returns how many existed.
// Absent keys contribute zero. Per-key failures are isolated unless every
// key failed.
func (e *Executor) Remove(ctx context.Context, plan planner.Plan) (res storagemodels.Result, err error) {
	collection := collectionOf(plan)

	var ids []string
	switch p := plan.(type) {
	case planner.KeyLookup:
		ids = p.IDs
	case planner.IndexedQuery:
		if ids, err = e.resolve(ctx, "remove", p); err != nil {
			return res, err
		}
	default:
		return res, fmt.Errorf("executor: unsupported plan %T", plan)
	}

	switch len(ids) {
	case 0:
		return res, nil
	case 1:
		removed, err := e.RemoveKey(ctx, storagemodels.Key{Collection: collection, ID: ids[0]})
		if err != nil {
			return res, err
		}
		if removed {
			res.Count = 1
		}
		return res, nil
	}

	agg := e.fanOut(ctx, "remove", collection, ids, func(ctx context.Context, _ int, id string) Outcome {
		removed, err := e.RemoveKey(ctx, storagemodels.Key{Collection: collection, ID: id})
		return Outcome{ID: id, Applied: removed, Err: err}
	})
	if err := e.settle(ctx, agg); err != nil {
		return res, err
	}
	res.Count = agg.Count()
	return res, nil
}

// Update applies fn to every record a plan matches and writes the result
// back under the same key. Index matches only select identifiers: each
// record is read again by key before fn sees it, and records that are gone
// by then contribute zero. fn must keep the identifier.
func (e *Executor) Update(ctx context.Context, plan planner.Plan, fn func(storagemodels.Record) (storagemodels.Record, error)) (res storagemodels.Result, err error) {
	collection := collectionOf(plan)

	var ids []string
	switch p := plan.(type) {
	case planner.KeyLookup:
		ids = p.IDs
	case planner.IndexedQuery:
		if ids, err = e.resolve(ctx, "update", p); err != nil {
			return res, err
		}
	default:
		return res, fmt.Errorf("executor: unsupported plan %T", plan)
	}
	if len(ids) == 0 {
		return res, nil
	}

	agg := e.fanOut(ctx, "update", collection, ids, func(ctx context.Context, _ int, id string) Outcome {
		key := storagemodels.Key{Collection: collection, ID: id}
		current, err := e.store.Get(ctx, key)
		if err != nil {
			return Outcome{ID: id, Err: err}
		}
		if current == nil {
			return Outcome{ID: id}
		}
		next, err := fn(current)
		if err != nil {
			return Outcome{ID: id, Err: err}
		}
		if err := e.Set(ctx, key, next, storagemodels.SetOptions{}); err != nil {
			return Outcome{ID: id, Err: err}
		}
		return Outcome{ID: id, Applied: true, Record: next}
	})
	if err := e.settle(ctx, agg); err != nil {
		return res, err
	}
	res.Count = agg.Count()
	return res, nil
}

// SetAll writes independent records, one key request each. Outcomes keep
// the input order and failures stay isolated per record; the caller decides
// how to report them.
func (e *Executor) SetAll(ctx context.Context, collection string, ids []string, recs []storagemodels.Record, opts storagemodels.SetOptions) *Aggregate {
	return e.fanOut(ctx, "create", collection, ids, func(ctx context.Context, i int, id string) Outcome {
		err := e.Set(ctx, storagemodels.Key{Collection: collection, ID: id}, recs[i], opts)
		return Outcome{ID: id, Applied: err == nil, Record: recs[i], Err: err}
	})
}

// lookup reads ids by key. A single id propagates its error unchanged;
// larger batches fan out and isolate per-key failures.
func (e *Executor) lookup(ctx context.Context, op, collection string, ids []string) (*Aggregate, error) {
	e.logger.DebugContext(ctx, "routing",
		"collection", collection,
		"operation", op,
		"path", planner.PathKey,
		"ids", len(ids))

	if len(ids) <= 1 {
		agg := &Aggregate{Op: op, Collection: collection}
		if len(ids) == 1 {
			rec, err := e.store.Get(ctx, storagemodels.Key{Collection: collection, ID: ids[0]})
			if err != nil {
				return nil, err
			}
			agg.Outcomes = []Outcome{{ID: ids[0], Applied: rec != nil, Record: rec}}
		}
		return agg, nil
	}

	agg := e.fanOut(ctx, op, collection, ids, func(ctx context.Context, _ int, id string) Outcome {
		rec, err := e.store.Get(ctx, storagemodels.Key{Collection: collection, ID: id})
		return Outcome{ID: id, Applied: rec != nil, Record: rec, Err: err}
	})
	if err := e.settle(ctx, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// query runs an indexed query after consulting the consistency tracker.
// A plan that matches nothing never reaches the store.
func (e *Executor) query(ctx context.Context, op string, p planner.IndexedQuery, params storagemodels.QueryParams) ([]storagemodels.Record, error) {
	if p.MatchNone {
		return []storagemodels.Record{}, nil
	}
	e.logger.DebugContext(ctx, "routing",
		"collection", params.Collection,
		"operation", op,
		"path", planner.PathIndex,
		"terms", len(params.Terms))

	if err := e.tracker.Check(ctx, params.Collection); err != nil {
		return nil, err
	}
	recs, err := e.store.Query(ctx, &params)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []storagemodels.Record{}
	}
	return recs, nil
}

// resolve returns the ids of the existing records a plan matches.
func (e *Executor) resolve(ctx context.Context, op string, plan planner.Plan) ([]string, error) {
	var ids []string
	switch p := plan.(type) {
	case planner.KeyLookup:
		agg, err := e.lookup(ctx, op, p.Collection, p.IDs)
		if err != nil {
			return nil, err
		}
		for _, o := range agg.Outcomes {
			if o.Applied && o.Err == nil {
				ids = append(ids, o.ID)
			}
		}

	case planner.IndexedQuery:
		params := p.Params
		params.Projection = []string{p.IDField}
		recs, err := e.query(ctx, op, p, params)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if id, ok := rec.StringField(p.IDField); ok && id != "" {
				ids = append(ids, id)
			}
		}

	default:
		return nil, fmt.Errorf("executor: unsupported plan %T", plan)
	}
	return ids, nil
}

// fanOut runs fn for every id with at most e.concurrency requests in
// flight. fn reports failures in its Outcome, so one failing key never
// cancels the others.
func (e *Executor) fanOut(ctx context.Context, op, collection string, ids []string, fn func(ctx context.Context, i int, id string) Outcome) *Aggregate {
	agg := &Aggregate{Op: op, Collection: collection, Outcomes: make([]Outcome, len(ids))}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			agg.Outcomes[i] = fn(ctx, i, id)
			return nil
		})
	}
	_ = g.Wait()
	return agg
}

// settle turns an aggregate into the call's error: fatal when every item
// failed, otherwise failures are logged, counted and dropped.
func (e *Executor) settle(ctx context.Context, agg *Aggregate) error {
	if err := agg.Fatal(); err != nil {
		return err
	}
	failures := agg.Failures()
	if len(failures) == 0 {
		return nil
	}
	e.metrics.RecordItemFailures(agg.Collection, agg.Op, len(failures))
	for _, f := range failures {
		e.logger.WarnContext(ctx, "bulk item failed",
			"collection", agg.Collection,
			"operation", agg.Op,
			"id", f.ID,
			"error", f.Err)
	}
	return nil
}

func (e *Executor) observe(collection, op string, path planner.Path, start time.Time, err *error) {
	e.metrics.RecordOperation(collection, op, string(path), *err, time.Since(start))
}

func collectionOf(plan planner.Plan) string {
	switch p := plan.(type) {
	case planner.KeyLookup:
		return p.Collection
	case planner.IndexedQuery:
		return p.Params.Collection
	}
	return ""
}

// shape applies a limit and a projection to fetched records.
func shape(recs []storagemodels.Record, proj planner.Projection, limit int) []storagemodels.Record {
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	if proj.IsZero() {
		return recs
	}
	out := make([]storagemodels.Record, len(recs))
	for i, rec := range recs {
		out[i] = proj.Apply(rec)
	}
	return out
}
