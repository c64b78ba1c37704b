/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/storagemodels"
)

func newTestStore(t *testing.T) *DataStore {
	t.Helper()
	ds, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

func personKey(id string) storagemodels.Key {
	return storagemodels.Key{Collection: "person", ID: id}
}

func TestGetSetRemove(t *testing.T) {
	ctx := context.Background()
	ds := newTestStore(t)

	rec := storagemodels.Record{"id": "a", "name": "Alice", "age": 24.0, "active": true}
	require.NoError(t, ds.Set(ctx, personKey("a"), rec, storagemodels.SetOptions{}))

	got, err := ds.Get(ctx, personKey("a"))
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	rec["name"] = "Alicia"
	require.NoError(t, ds.Set(ctx, personKey("a"), rec, storagemodels.SetOptions{}))
	got, err = ds.Get(ctx, personKey("a"))
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got["name"])

	removed, err := ds.Remove(ctx, personKey("a"))
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = ds.Remove(ctx, personKey("a"))
	require.NoError(t, err)
	assert.False(t, removed)

	got, err = ds.Get(ctx, personKey("a"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetFailIfExists(t *testing.T) {
	ctx := context.Background()
	ds := newTestStore(t)

	require.NoError(t, ds.Set(ctx, personKey("a"), storagemodels.Record{"name": "first"}, storagemodels.SetOptions{FailIfExists: true}))
	err := ds.Set(ctx, personKey("a"), storagemodels.Record{"name": "second"}, storagemodels.SetOptions{FailIfExists: true})
	assert.True(t, errors.IsAlreadyExists(err))

	got, err := ds.Get(ctx, personKey("a"))
	require.NoError(t, err)
	assert.Equal(t, "first", got["name"])

	require.NoError(t, ds.Set(ctx, storagemodels.Key{Collection: "team", ID: "a"}, storagemodels.Record{}, storagemodels.SetOptions{FailIfExists: true}),
		"identifiers are scoped to a collection")
}

func TestEmptyIdentifier(t *testing.T) {
	ctx := context.Background()
	ds := newTestStore(t)

	_, err := ds.Get(ctx, personKey(""))
	assert.True(t, errors.IsValidationError(err))
	assert.True(t, errors.IsValidationError(ds.Set(ctx, personKey(""), storagemodels.Record{}, storagemodels.SetOptions{})))
	_, err = ds.Remove(ctx, personKey(""))
	assert.True(t, errors.IsValidationError(err))
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	ds := newTestStore(t)
	for _, rec := range []storagemodels.Record{
		{"id": "c", "name": "Carol", "age": 24.0, "active": true},
		{"id": "a", "name": "Alice", "age": 24.0, "active": false},
		{"id": "b", "name": "Bob", "age": 31.0, "active": true},
	} {
		require.NoError(t, ds.Set(ctx, personKey(rec["id"].(string)), rec, storagemodels.SetOptions{}))
	}
	require.NoError(t, ds.Set(ctx, storagemodels.Key{Collection: "other", ID: "z"}, storagemodels.Record{"age": 24.0}, storagemodels.SetOptions{}))

	tests := []struct {
		name   string
		params storagemodels.QueryParams
		want   []string
	}{
		{"all", storagemodels.QueryParams{}, []string{"a", "b", "c"}},
		{"number equality", storagemodels.QueryParams{Terms: []storagemodels.Term{{Field: "age", Condition: storagemodels.Eq(24.0)}}}, []string{"a", "c"}},
		{"bool equality", storagemodels.QueryParams{Terms: []storagemodels.Term{{Field: "active", Condition: storagemodels.Eq(true)}}}, []string{"b", "c"}},
		{"membership", storagemodels.QueryParams{Terms: []storagemodels.Term{{Field: "name", Condition: storagemodels.In("Bob", "Carol", "Zed")}}}, []string{"b", "c"}},
		{"conjunction", storagemodels.QueryParams{Terms: []storagemodels.Term{
			{Field: "age", Condition: storagemodels.Eq(24.0)},
			{Field: "active", Condition: storagemodels.Eq(true)},
		}}, []string{"c"}},
		{"missing field", storagemodels.QueryParams{Terms: []storagemodels.Term{{Field: "height", Condition: storagemodels.Eq(1.0)}}}, nil},
		{"limit", storagemodels.QueryParams{Limit: 2}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.params
			params.Collection = "person"
			recs, err := ds.Query(ctx, &params)
			require.NoError(t, err)
			var ids []string
			for _, r := range recs {
				ids = append(ids, r["id"].(string))
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	t.Run("projection", func(t *testing.T) {
		recs, err := ds.Query(ctx, &storagemodels.QueryParams{Collection: "person", Projection: []string{"name"}, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []storagemodels.Record{{"name": "Alice"}}, recs)
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := ds.Query(ctx, &storagemodels.QueryParams{
			Collection: "person",
			Terms:      []storagemodels.Term{{Field: "name", Condition: storagemodels.In()}},
		})
		assert.Error(t, err)
	})
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	ds, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, ds.Set(ctx, personKey("a"), storagemodels.Record{"name": "Alice"}, storagemodels.SetOptions{}))
	require.NoError(t, ds.Close())

	ds, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer ds.Close()
	got, err := ds.Get(ctx, personKey("a"))
	require.NoError(t, err)
	assert.Equal(t, "Alice", got["name"])
}
