/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/recordstore/config"
	"github.com/suparena/recordstore/metrics"
	"github.com/suparena/recordstore/schema"
	"github.com/suparena/recordstore/storagemodels"
)

func configWithPeople(backend config.Backend) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Backend = backend
	cfg.Consistency.Policy = "ignore"
	cfg.Models = []*schema.Schema{personSchema()}
	return &cfg
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	cat, err := Open(ctx, configWithPeople(config.BackendMemory), nil, metrics.NewCollector(""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	people, err := cat.Model("person")
	require.NoError(t, err)
	_, err = people.Create(ctx, storagemodels.Record{"id": "0", "name": "Charlie"})
	require.NoError(t, err)
	exists, err := people.Exists(ctx, "0")
	require.NoError(t, err)
	assert.True(t, exists)
}

// The same caller-visible behavior holds on the Redis backend.
func TestOpenRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := configWithPeople(config.BackendRedis)
	cfg.Redis.Addr = mr.Addr()

	cat, err := Open(ctx, cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	people, err := cat.Model("person")
	require.NoError(t, err)

	_, err = people.Create(ctx, storagemodels.Record{"id": "0", "name": "Charlie", "age": 24})
	require.NoError(t, err)
	_, err = people.Create(ctx, storagemodels.Record{"id": "0", "name": "Impostor"})
	assert.Error(t, err)

	updated, err := people.UpdateOrCreate(ctx, storagemodels.Record{"id": "0", "name": "Charlie II", "age": 24})
	require.NoError(t, err)
	assert.Equal(t, "Charlie II", updated["name"])

	_, err = people.Create(ctx, storagemodels.Record{"id": "1", "name": "Mary", "age": 24})
	require.NoError(t, err)

	recs, err := people.Find(ctx, &storagemodels.Filter{
		Where:  storagemodels.Where{"id": storagemodels.In("0", "lorem", "1")},
		Fields: storagemodels.Fields{"age": false},
	})
	require.NoError(t, err)
	assert.Equal(t, []storagemodels.Record{
		{"id": "0", "name": "Charlie II"},
		{"id": "1", "name": "Mary"},
	}, recs)

	n, err := people.Count(ctx, storagemodels.Where{"age": storagemodels.Eq(24)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := people.Remove(ctx, storagemodels.Where{"id": storagemodels.In("0", "1")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	res, err = people.Remove(ctx, storagemodels.Where{"id": storagemodels.In("0", "1")})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	cat, err := Open(ctx, configWithPeople(config.BackendSQLite), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	people, err := cat.Model("person")
	require.NoError(t, err)

	_, err = people.CreateAll(ctx, []storagemodels.Record{
		{"id": "0", "name": "Charlie", "age": 24},
		{"id": "1", "name": "Mary", "age": 24},
		{"id": "2", "name": "David", "age": 44},
	})
	require.NoError(t, err)

	recs, err := people.Find(ctx, &storagemodels.Filter{
		Where:  storagemodels.Where{"age": storagemodels.Eq(24)},
		Fields: storagemodels.Fields{"name": true, "age": false},
	})
	require.NoError(t, err)
	assert.Equal(t, []storagemodels.Record{{"name": "Charlie"}, {"name": "Mary"}}, recs)

	res, err := people.UpdateAll(ctx, storagemodels.Where{"age": storagemodels.Eq(24)}, storagemodels.Record{"age": 25})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	res, err = people.Remove(ctx, storagemodels.Where{"age": storagemodels.In(25, 44)})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
}

func TestOpenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := configWithPeople(config.BackendRedis)
	cfg.Redis.Addr = mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}

func TestOpenDynamoDB(t *testing.T) {
	cfg := configWithPeople(config.BackendDynamoDB)
	_, err := Open(context.Background(), cfg, nil, nil)
	require.Error(t, err, "a table is required")

	cfg.DynamoDB.Table = "records"
	cfg.DynamoDB.Region = "us-east-1"
	cfg.DynamoDB.AccessKey = "test"
	cfg.DynamoDB.SecretKey = "test"
	cfg.DynamoDB.Endpoint = "http://localhost:8000"
	cat, err := Open(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"person"}, cat.Models())
	assert.NoError(t, cat.Close())
}

func TestOpenRejectsInvalidModels(t *testing.T) {
	cfg := configWithPeople(config.BackendMemory)
	cfg.Models = append(cfg.Models, personSchema())
	_, err := Open(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
