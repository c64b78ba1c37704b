/*
Package schema describes record models explicitly: an ordered list of fields,
each with a name, a type and an identifier flag.

Schemas are resolved once and passed to the planner and the identifier
manager; nothing inspects records by reflection.

	people := schema.MustNew("person",
	    schema.Field{Name: "id", Type: schema.String, ID: true},
	    schema.Field{Name: "name", Type: schema.String},
	    schema.Field{Name: "age", Type: schema.Number},
	)

Coerce normalizes values to the declared types (numbers to float64, dates to
RFC 3339 strings via strfmt) before they reach a backend. Model files can be
loaded from YAML with LoadYAML or LoadFile.
*/
package schema
