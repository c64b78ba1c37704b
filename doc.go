/*
Package recordstore plans and executes record operations against a
key-value store with a secondary-index query path.

Each model is described by an explicit schema. A Repository compiles the
filter of every call into one of two plans:

  - a key lookup, when the filter constrains only the identifier field with
    an equality or an inq set. Reads and writes on this path are strongly
    consistent and batches fan out as independent key requests.
  - an indexed query for every other filter. It runs on the store's
    secondary index, which may lag behind recent key writes.

Backends live under datastore: DynamoDB (datastore/ddb), Redis
(datastore/redis), SQLite (datastore/sqlite) and an in-memory store
(datastore/mock). Open selects one from a config.Config.

Basic Usage:

	cat := recordstore.NewCatalog(mock.New(), recordstore.Options{})
	people, _ := cat.Define(schema.MustNew("person",
	    schema.Field{Name: "id", Type: schema.String, ID: true},
	    schema.Field{Name: "name", Type: schema.String},
	    schema.Field{Name: "age", Type: schema.Number},
	))

	rec, _ := people.Create(ctx, storagemodels.Record{"name": "Charlie", "age": 24})
	same, _ := people.FindByID(ctx, rec["id"].(string))
	adults, _ := people.Find(ctx, &storagemodels.Filter{
	    Where:  storagemodels.Where{"age": storagemodels.Eq(24)},
	    Fields: storagemodels.Fields{"name": true},
	})
	res, _ := people.Remove(ctx, storagemodels.Where{"id": storagemodels.In("0", "1")})

Consistency:

Indexed queries issued shortly after a key-path write on the same
collection may miss that write. The consistency package detects this window
and, depending on policy, ignores it, logs it or rejects the query with an
IndexPendingError. Callers that need read-your-writes should filter on
identifiers.
*/
package recordstore
