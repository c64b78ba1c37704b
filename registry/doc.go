/*
Package registry manages model registration and key layouts.

A Registry maps model names to their schemas:

	reg := registry.New()
	reg.Register(schema.MustNew("person",
	    schema.Field{Name: "id", Type: schema.String, ID: true},
	    schema.Field{Name: "name", Type: schema.String},
	))
	s, err := reg.Schema("person")

Index Maps:
Backends with composite keys derive item attributes from index map
templates. Macros are replaced with the collection name, the identifier or
a record field:

	indexMap := map[string]string{
	    "PK":     "USER#{ID}",
	    "SK":     "USER#{ID}",
	    "GSI1PK": "{Collection}",
	    "GSI1SK": "{Email}",
	}

PK and SK must reference {ID}; GSI1PK may only reference {Collection} so a
collection can be queried as one index partition. Models without a layout
use DefaultIndexMap.
*/
package registry
