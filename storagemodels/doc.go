/*
Package storagemodels defines the data structures shared by the planner, the
executor and the storage backends.

Record:
A record is a plain field map; the model schema decides which field is the
identifier:

	rec := storagemodels.Record{"id": "0", "name": "Charlie", "age": 24}

Filter:
Find-like operations take a Filter made of a Where clause, a projection and a
limit. Only equality, set membership (inq) and the implicit AND across fields
are supported:

	f := &storagemodels.Filter{
	    Where:  storagemodels.Where{"id": storagemodels.In("0", "1")},
	    Fields: storagemodels.Fields{"name": true, "age": false},
	    Limit:  10,
	}

The same filter can be decoded from its JSON form with ParseFilter.

Key and QueryParams:
Backends receive either a Key ("collection::id") for the key-value path or
QueryParams for the indexed-query path. Result carries the count of a bulk
mutation.
*/
package storagemodels
