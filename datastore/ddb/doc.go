/*
Package ddb provides a DynamoDB implementation of the DataStore interface.

The DataStore supports:
  - Single-table design with macro-based key expansion
  - Strongly consistent key-path reads (GetItem with ConsistentRead)
  - Create-only writes guarded by attribute_not_exists
  - Collection queries on a Global Secondary Index with filter expressions
  - Paging and retry of throttled index queries
  - Automatic EntityType injection for polymorphic storage

Key Features:

Macro Expansion:
Key attributes are expanded from index map templates. {Collection} and {ID}
are always available; other macros read record fields:

	indexMap := map[string]string{
	    "PK":     "USER#{ID}",      // Becomes "USER#123"
	    "SK":     "USER#{ID}",
	    "GSI1PK": "{Collection}",   // One index partition per collection
	    "GSI1SK": "{ID}",           // Index order
	}

Consistency:
Items written through Set become visible to Get immediately. Query reads the
GSI, which DynamoDB replicates asynchronously, so a record created a moment
ago may be missing from query results.

For usage examples, see the integration tests.
*/
package ddb
