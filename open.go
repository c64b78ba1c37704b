/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suparena/recordstore/config"
	"github.com/suparena/recordstore/consistency"
	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/datastore/ddb"
	"github.com/suparena/recordstore/datastore/mock"
	"github.com/suparena/recordstore/datastore/redis"
	"github.com/suparena/recordstore/datastore/sqlite"
	"github.com/suparena/recordstore/executor"
	"github.com/suparena/recordstore/metrics"
	"github.com/suparena/recordstore/registry"
)

// Open connects to the backend named by cfg and returns a Catalog with
// cfg.Models defined. m may be nil. The caller must Close the catalog.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Collector) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()
	var (
		store   datastore.DataStore
		closers []func() error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = mock.New()

	case config.BackendDynamoDB:
		client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientConfig{
			Region:    cfg.DynamoDB.Region,
			AccessKey: cfg.DynamoDB.AccessKey,
			SecretKey: cfg.DynamoDB.SecretKey,
			Endpoint:  cfg.DynamoDB.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		gsi := ddb.DefaultGSIConfig()
		gsi.IndexName = cfg.DynamoDB.Index
		store, err = ddb.New(client, ddb.Config{
			Table:     cfg.DynamoDB.Table,
			GSI:       gsi,
			IndexMaps: reg,
			Query: ddb.QueryOptions{
				PageSize:     cfg.DynamoDB.PageSize,
				MaxRetries:   cfg.DynamoDB.MaxRetries,
				RetryBackoff: cfg.DynamoDB.RetryBackoff,
			},
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}

	case config.BackendRedis:
		client, err := redis.NewClient(ctx, redis.ClientConfig{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		store = redis.New(client, redis.Config{Prefix: cfg.Redis.Prefix, Logger: logger})
		closers = append(closers, client.Close)

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		store = db
		closers = append(closers, db.Close)

	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}

	cat := NewCatalog(store, Options{
		Registry: reg,
		Executor: executor.Options{
			Tracker:          consistency.NewTracker(cfg.ConsistencyPolicy(), logger, m),
			Metrics:          m,
			Logger:           logger,
			BatchConcurrency: cfg.Query.BatchConcurrency,
		},
		DefaultLimit: cfg.Query.DefaultLimit,
	})
	for _, fn := range closers {
		cat.closers = append(cat.closers, closerFunc(fn))
	}
	for _, s := range cfg.Models {
		if _, err := cat.Define(s); err != nil {
			_ = cat.Close()
			return nil, err
		}
	}

	logger.Info("record store opened", "backend", cfg.Backend, "models", len(cfg.Models))
	return cat, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
