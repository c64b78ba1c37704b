/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package executor

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/recordstore/consistency"
	"github.com/suparena/recordstore/datastore/mock"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/metrics"
	"github.com/suparena/recordstore/planner"
	"github.com/suparena/recordstore/storagemodels"
)

func seeded(t *testing.T) *mock.DataStore {
	t.Helper()
	store := mock.New()
	for _, rec := range []storagemodels.Record{
		{"id": "0", "name": "Charlie", "age": 24.0},
		{"id": "1", "name": "Mary", "age": 24.0},
		{"id": "2", "name": "David", "age": 44.0},
	} {
		id, _ := rec.StringField("id")
		require.NoError(t, store.Set(context.Background(), storagemodels.Key{Collection: "person", ID: id}, rec, storagemodels.SetOptions{}))
	}
	return store
}

func lookup(ids ...string) planner.KeyLookup {
	return planner.KeyLookup{Collection: "person", IDs: ids}
}

func indexed(terms ...storagemodels.Term) planner.IndexedQuery {
	return planner.IndexedQuery{
		Params:  storagemodels.QueryParams{Collection: "person", Terms: terms},
		IDField: "id",
	}
}

func ids(recs []storagemodels.Record) []any {
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, r["id"])
	}
	return out
}

func TestFindKeyLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("ZeroIdsNeverReachTheStore", func(t *testing.T) {
		store := seeded(t)
		exec := New(store, Options{})
		g0, _, _, q0 := store.Calls()

		recs, err := exec.Find(ctx, lookup())
		require.NoError(t, err)
		assert.Empty(t, recs)
		assert.NotNil(t, recs)

		g1, _, _, q1 := store.Calls()
		assert.Equal(t, g0, g1)
		assert.Equal(t, q0, q1)
	})

	t.Run("OrderPreservedAndAbsentOmitted", func(t *testing.T) {
		exec := New(seeded(t), Options{BatchConcurrency: 2})
		recs, err := exec.Find(ctx, lookup("2", "lorem", "0"))
		require.NoError(t, err)
		assert.Equal(t, []any{"2", "0"}, ids(recs))
	})

	t.Run("SingleAbsentId", func(t *testing.T) {
		exec := New(seeded(t), Options{})
		recs, err := exec.Find(ctx, lookup("lorem"))
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("ProjectionAndLimit", func(t *testing.T) {
		exec := New(seeded(t), Options{})
		plan := lookup("0", "1")
		plan.Limit = 1
		plan.Projection = planner.Projection{Exclude: []string{"age"}}
		recs, err := exec.Find(ctx, plan)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, storagemodels.Record{"id": "0", "name": "Charlie"}, recs[0])
	})

	t.Run("TransportErrorUnchanged", func(t *testing.T) {
		transport := stderrors.New("connection reset")
		exec := New(seeded(t).WithGetError(transport), Options{})

		_, err := exec.Find(ctx, lookup("0"))
		assert.Same(t, transport, err)

		_, err = exec.Find(ctx, lookup("0", "1"))
		assert.Same(t, transport, err)
	})

	t.Run("PartialBatchFailureIsolated", func(t *testing.T) {
		store := seeded(t).WithKeyError("1", stderrors.New("timeout"))
		m := metrics.NewCollector("test")
		exec := New(store, Options{Metrics: m})

		recs, err := exec.Find(ctx, lookup("0", "1", "2"))
		require.NoError(t, err)
		assert.Equal(t, []any{"0", "2"}, ids(recs))
	})
}

func TestFindIndexedQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("MatchNoneNeverReachesTheStore", func(t *testing.T) {
		store := seeded(t)
		exec := New(store, Options{})
		plan := indexed()
		plan.MatchNone = true

		recs, err := exec.Find(ctx, plan)
		require.NoError(t, err)
		assert.Empty(t, recs)
		assert.Zero(t, store.QueryCalls())
	})

	t.Run("PredicateProjectionLimit", func(t *testing.T) {
		exec := New(seeded(t), Options{})
		plan := indexed(storagemodels.Term{Field: "age", Condition: storagemodels.Eq(24.0)})
		plan.Projection = planner.Projection{Include: []string{"name"}, Exclude: []string{"age"}}
		plan.Params.Projection = []string{"name"}
		plan.Params.Limit = 1

		recs, err := exec.Find(ctx, plan)
		require.NoError(t, err)
		assert.Equal(t, []storagemodels.Record{{"name": "Charlie"}}, recs)
	})

	t.Run("LimitEnforcedWhenBackendIgnoresIt", func(t *testing.T) {
		store := mock.New().WithQueryFunc(func(ctx context.Context, p *storagemodels.QueryParams) ([]storagemodels.Record, error) {
			return []storagemodels.Record{{"id": "a"}, {"id": "b"}, {"id": "c"}}, nil
		})
		plan := indexed()
		plan.Params.Limit = 2
		recs, err := New(store, Options{}).Find(ctx, plan)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("QueryErrorUnchanged", func(t *testing.T) {
		transport := stderrors.New("no route to host")
		_, err := New(seeded(t).WithQueryError(transport), Options{}).Find(ctx, indexed())
		assert.Same(t, transport, err)
	})
}

func TestConsistencyBoundary(t *testing.T) {
	ctx := context.Background()
	store := mock.New().WithIndexLag()
	tracker := consistency.NewTracker(consistency.Config{Policy: consistency.Reject, IndexLag: time.Hour}, nil, nil)
	exec := New(store, Options{Tracker: tracker})

	key := storagemodels.Key{Collection: "person", ID: "0"}
	require.NoError(t, exec.Set(ctx, key, storagemodels.Record{"id": "0"}, storagemodels.SetOptions{FailIfExists: true}))

	recs, err := exec.Find(ctx, lookup("0"))
	require.NoError(t, err)
	assert.Len(t, recs, 1, "the key path is immediately consistent")

	_, err = exec.Find(ctx, indexed())
	assert.True(t, errors.IsIndexPending(err), "expected index pending, got %v", err)

	tracker.Forget("person")
	recs, err = exec.Find(ctx, indexed())
	require.NoError(t, err)
	assert.Empty(t, recs, "the lagging index has not seen the record yet")

	store.SyncIndex()
	recs, err = exec.Find(ctx, indexed())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("KeyLookupCountsExisting", func(t *testing.T) {
		exec := New(seeded(t), Options{})
		res, err := exec.Remove(ctx, lookup("0", "1", "lorem"))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count)

		res, err = exec.Remove(ctx, lookup("0", "1", "lorem"))
		require.NoError(t, err)
		assert.Equal(t, 0, res.Count)
	})

	t.Run("SingleKey", func(t *testing.T) {
		exec := New(seeded(t), Options{})
		res, err := exec.Remove(ctx, lookup("2"))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Count)
	})

	t.Run("IndexedQuery", func(t *testing.T) {
		store := seeded(t)
		exec := New(store, Options{})
		res, err := exec.Remove(ctx, indexed(storagemodels.Term{Field: "age", Condition: storagemodels.Eq(24.0)}))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("EveryKeyFailing", func(t *testing.T) {
		transport := stderrors.New("connection refused")
		_, err := New(seeded(t).WithRemoveError(transport), Options{}).Remove(ctx, lookup("0", "1"))
		assert.ErrorIs(t, err, transport)
	})

	t.Run("PartialFailureCountsTheRest", func(t *testing.T) {
		store := seeded(t).WithKeyError("1", stderrors.New("throttled"))
		res, err := New(store, Options{}).Remove(ctx, lookup("0", "1", "2"))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count)
	})
}

func TestUpdateAndCount(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)
	exec := New(store, Options{})

	bump := func(rec storagemodels.Record) (storagemodels.Record, error) {
		out := rec.Clone()
		out["age"] = rec["age"].(float64) + 1
		return out, nil
	}

	res, err := exec.Update(ctx, indexed(storagemodels.Term{Field: "age", Condition: storagemodels.Eq(24.0)}), bump)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	res, err = exec.Update(ctx, lookup("2", "lorem"), bump)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	got, err := exec.Get(ctx, storagemodels.Key{Collection: "person", ID: "2"})
	require.NoError(t, err)
	assert.Equal(t, 45.0, got["age"])

	n, err := exec.Count(ctx, indexed(storagemodels.Term{Field: "age", Condition: storagemodels.Eq(25.0)}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = exec.Count(ctx, lookup("0", "lorem"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSetAll(t *testing.T) {
	ctx := context.Background()
	exec := New(seeded(t), Options{})

	recs := []storagemodels.Record{{"id": "9"}, {"id": "0"}, {"id": "8"}}
	agg := exec.SetAll(ctx, "person", []string{"9", "0", "8"}, recs, storagemodels.SetOptions{FailIfExists: true})

	assert.Equal(t, 2, agg.Count())
	assert.Equal(t, []any{"9", "8"}, ids(agg.Records()))

	be, ok := errors.AsBatchError(agg.Err())
	require.True(t, ok)
	require.Len(t, be.Failures, 1)
	assert.Equal(t, 1, be.Failures[0].Index)
	assert.True(t, errors.IsAlreadyExists(agg.Err()))
	assert.NoError(t, agg.Fatal())
}
