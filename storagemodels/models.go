/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// Record maps field names to values. Exactly one field, named by the
// model schema, carries the identifier.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// StringField returns the named field when it holds a string.
func (r Record) StringField(name string) (string, bool) {
	v, ok := r[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Key addresses one record in the key-value path of a store.
type Key struct {
	Collection string
	ID         string
}

// String renders the key in the "collection::id" form used by backends
// without structured keys.
func (k Key) String() string {
	return k.Collection + "::" + k.ID
}

// SetOptions controls a key-path write.
type SetOptions struct {
	// FailIfExists turns the write into a create: an existing key yields
	// an AlreadyExistsError and the stored value is left untouched.
	FailIfExists bool
}

// Term is one compiled field constraint of an indexed query.
type Term struct {
	Field string
	Condition
}

// QueryParams defines an indexed query against one collection.
// All terms are conjoined; an empty term list matches every record.
type QueryParams struct {
	// Collection is the model/collection name.
	Collection string
	// Terms are the field constraints, implicitly ANDed.
	Terms []Term
	// Projection lists the fields to return; empty means all fields.
	Projection []string
	// Limit caps the number of records returned; 0 means unbounded.
	Limit int
}

// Result is the outcome of a bulk mutation.
type Result struct {
	Count int `json:"count"`
}
