/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/recordstore/storagemodels"
)

// DataStore is the capability set a backend offers the executor.
//
// Get, Set and Remove address one record by key and are immediately
// consistent. Query evaluates conjoined terms through the backend's
// secondary index and may observe a delayed view of key-path writes.
type DataStore interface {
	// Get returns the record stored under key, or nil, nil when absent.
	Get(ctx context.Context, key storagemodels.Key) (storagemodels.Record, error)

	// Set stores rec under key. With FailIfExists an existing key yields an
	// AlreadyExistsError and the stored record is left untouched.
	Set(ctx context.Context, key storagemodels.Key, rec storagemodels.Record, opts storagemodels.SetOptions) error

	// Remove deletes the record under key and reports whether it existed.
	Remove(ctx context.Context, key storagemodels.Key) (bool, error)

	// Query returns the records of params.Collection satisfying every term.
	Query(ctx context.Context, params *storagemodels.QueryParams) ([]storagemodels.Record, error)
}
