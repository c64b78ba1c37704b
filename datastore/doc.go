/*
Package datastore defines the boundary between the execution engine and a
record backend.

	type DataStore interface {
	    Get(ctx context.Context, key storagemodels.Key) (storagemodels.Record, error)
	    Set(ctx context.Context, key storagemodels.Key, rec storagemodels.Record, opts storagemodels.SetOptions) error
	    Remove(ctx context.Context, key storagemodels.Key) (bool, error)
	    Query(ctx context.Context, params *storagemodels.QueryParams) ([]storagemodels.Record, error)
	}

Absence is never an error at this boundary: Get returns nil and Remove
returns false. Errors a backend returns are transport or configuration
failures, except AlreadyExistsError from a Set with FailIfExists.

Implementations:
  - ddb: DynamoDB single-table backend; Query runs on a global secondary index
  - redis: Redis backend; Query reads the collection's id set and filters in process
  - sqlite: SQLite backend; Query filters JSON documents with json_extract
  - mock: in-memory backend with error injection and simulated index lag
*/
package datastore
