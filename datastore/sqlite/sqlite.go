/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package sqlite provides a SQLite implementation of the DataStore
// interface. Records of every collection share one table and are stored as
// JSON documents; queries filter with json_extract. SQLite has no separate
// index replica, so both paths are immediately consistent.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/storagemodels"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// DataStore implements datastore.DataStore on a SQLite database.
type DataStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and ensures the records
// table exists. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DataStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		doc        TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Info("SQLite data store initialized", "path", path)
	return &DataStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (d *DataStore) Close() error {
	return d.db.Close()
}

// Get retrieves a single record. It returns nil, nil if none is stored.
func (d *DataStore) Get(ctx context.Context, key storagemodels.Key) (storagemodels.Record, error) {
	if key.ID == "" {
		return nil, errors.NewValidationError("key", "empty identifier")
	}
	var doc string
	err := d.db.QueryRowContext(ctx,
		"SELECT doc FROM records WHERE collection = ? AND id = ?",
		key.Collection, key.ID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return decode(doc)
}

// Set stores rec under key. With FailIfExists an existing row is left
// untouched and an AlreadyExistsError is returned.
func (d *DataStore) Set(ctx context.Context, key storagemodels.Key, rec storagemodels.Record, opts storagemodels.SetOptions) error {
	if key.ID == "" {
		return errors.NewValidationError("key", "empty identifier")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	conflict := "DO UPDATE SET doc = excluded.doc"
	if opts.FailIfExists {
		conflict = "DO NOTHING"
	}
	res, err := d.db.ExecContext(ctx,
		"INSERT INTO records (collection, id, doc) VALUES (?, ?, ?) ON CONFLICT(collection, id) "+conflict,
		key.Collection, key.ID, string(data),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if opts.FailIfExists {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		if n == 0 {
			return errors.NewAlreadyExistsError(key.Collection, key.ID)
		}
	}
	return nil
}

// Remove deletes the record under key and reports whether it existed.
func (d *DataStore) Remove(ctx context.Context, key storagemodels.Key) (bool, error) {
	if key.ID == "" {
		return false, errors.NewValidationError("key", "empty identifier")
	}
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = ? AND id = ?",
		key.Collection, key.ID,
	)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return n > 0, nil
}

// Query evaluates params in SQL, ordered by identifier.
func (d *DataStore) Query(ctx context.Context, params *storagemodels.QueryParams) ([]storagemodels.Record, error) {
	query, args, err := buildQuery(params)
	if err != nil {
		return nil, err
	}
	d.logger.DebugContext(ctx, "sqlite query", "collection", params.Collection, "sql", query)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", params.Collection, err)
	}
	defer rows.Close()

	var results []storagemodels.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", params.Collection, err)
		}
		rec, err := decode(doc)
		if err != nil {
			return nil, err
		}
		results = append(results, project(rec, params.Projection))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", params.Collection, err)
	}
	return results, nil
}

// buildQuery translates conjoined terms into json_extract comparisons.
// Field paths are bound as parameters like the values.
func buildQuery(params *storagemodels.QueryParams) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT doc FROM records WHERE collection = ?")
	args := []any{params.Collection}

	for _, term := range params.Terms {
		path := fmt.Sprintf("$.%q", term.Field)
		switch term.Op {
		case storagemodels.OpEq:
			sb.WriteString(" AND json_extract(doc, ?) IS ?")
			args = append(args, path, sqlValue(term.Value()))
		case storagemodels.OpIn:
			if len(term.Values) == 0 {
				return "", nil, fmt.Errorf("empty set on %q cannot be expressed in SQL", term.Field)
			}
			sb.WriteString(" AND json_extract(doc, ?) IN (")
			args = append(args, path)
			for i, v := range term.Values {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString("?")
				args = append(args, sqlValue(v))
			}
			sb.WriteString(")")
		default:
			return "", nil, fmt.Errorf("unsupported operator %q on %q", term.Op, term.Field)
		}
	}

	sb.WriteString(" ORDER BY id")
	if params.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, params.Limit)
	}
	return sb.String(), args, nil
}

// sqlValue maps a record value onto what json_extract returns for it.
func sqlValue(v any) any {
	switch tv := v.(type) {
	case bool:
		if tv {
			return 1
		}
		return 0
	default:
		return v
	}
}

func decode(doc string) (storagemodels.Record, error) {
	var rec storagemodels.Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
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
