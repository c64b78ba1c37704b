/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"

	goredis "github.com/redis/go-redis/v9"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/planner"
	"github.com/suparena/recordstore/storagemodels"
)

// DefaultPageSize is the number of records fetched per MGET during a query.
const DefaultPageSize = 100

// ClientConfig holds the connection settings of a Redis client.
type ClientConfig struct {
	Address  string
	Password string
	DB       int
}

// Config configures a DataStore.
type Config struct {
	// Prefix is prepended to every key the store writes.
	Prefix   string
	PageSize int
	Logger   *slog.Logger
}

// DataStore implements datastore.DataStore on Redis.
type DataStore struct {
	client   goredis.UniversalClient
	prefix   string
	pageSize int
	logger   *slog.Logger
}

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, cc ClientConfig) (*goredis.Client, error) {
	opts := &goredis.Options{
		Addr: cc.Address,
		DB:   cc.DB,
	}
	if cc.Password != "" {
		opts.Password = cc.Password
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: ping failed: %w", cc.Address, err)
	}
	return client, nil
}

// New constructs a DataStore over client.
func New(client goredis.UniversalClient, cfg Config) *DataStore {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger.Info("Redis data store initialized", "prefix", cfg.Prefix)
	return &DataStore{
		client:   client,
		prefix:   cfg.Prefix,
		pageSize: cfg.PageSize,
		logger:   cfg.Logger,
	}
}

// Get retrieves a single record. It returns nil, nil if the key is unset.
func (d *DataStore) Get(ctx context.Context, key storagemodels.Key) (storagemodels.Record, error) {
	if key.ID == "" {
		return nil, errors.NewValidationError("key", "empty identifier")
	}
	val, err := d.client.Get(ctx, d.recordKey(key)).Result()
	if stderrors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return decode(val)
}

// Set stores rec under key. With FailIfExists the write uses SETNX and an
// existing key yields an AlreadyExistsError.
func (d *DataStore) Set(ctx context.Context, key storagemodels.Key, rec storagemodels.Record, opts storagemodels.SetOptions) error {
	if key.ID == "" {
		return errors.NewValidationError("key", "empty identifier")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	var created *goredis.BoolCmd
	_, err = d.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if opts.FailIfExists {
			created = pipe.SetNX(ctx, d.recordKey(key), data, 0)
		} else {
			pipe.Set(ctx, d.recordKey(key), data, 0)
		}
		pipe.SAdd(ctx, d.indexKey(key.Collection), key.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	if created != nil && !created.Val() {
		return errors.NewAlreadyExistsError(key.Collection, key.ID)
	}
	return nil
}

// Remove deletes the record under key and reports whether it existed.
func (d *DataStore) Remove(ctx context.Context, key storagemodels.Key) (bool, error) {
	if key.ID == "" {
		return false, errors.NewValidationError("key", "empty identifier")
	}
	var del *goredis.IntCmd
	_, err := d.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, d.recordKey(key))
		pipe.SRem(ctx, d.indexKey(key.Collection), key.ID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis DEL %s: %w", key, err)
	}
	return del.Val() > 0, nil
}

// Query evaluates params against every record of the collection.
func (d *DataStore) Query(ctx context.Context, params *storagemodels.QueryParams) ([]storagemodels.Record, error) {
	matcher, err := planner.NewMatcher(params.Terms)
	if err != nil {
		return nil, err
	}

	ids, err := d.client.SMembers(ctx, d.indexKey(params.Collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS %s: %w", params.Collection, err)
	}
	sort.Strings(ids)

	var results []storagemodels.Record
	for start := 0; start < len(ids); start += d.pageSize {
		end := min(start+d.pageSize, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, d.recordKey(storagemodels.Key{Collection: params.Collection, ID: id}))
		}

		vals, err := d.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis MGET %s: %w", params.Collection, err)
		}
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				// Removed between SMEMBERS and MGET.
				d.logger.DebugContext(ctx, "skipping vanished record", "key", keys[i])
				continue
			}
			rec, err := decode(s)
			if err != nil {
				return nil, err
			}
			match, err := matcher.Match(rec)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
			results = append(results, project(rec, params.Projection))
			if params.Limit > 0 && len(results) == params.Limit {
				return results, nil
			}
		}
	}
	return results, nil
}

func (d *DataStore) recordKey(key storagemodels.Key) string {
	return d.prefix + "rec:" + key.String()
}

func (d *DataStore) indexKey(collection string) string {
	return d.prefix + "idx:" + collection
}

func decode(val string) (storagemodels.Record, error) {
	var rec storagemodels.Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

func project(rec storagemodels.Record, fields []string) storagemodels.Record {
	if len(fields) == 0 {
		return rec
	}
	out := make(storagemodels.Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}
