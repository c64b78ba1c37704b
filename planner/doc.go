/*
Package planner compiles filter descriptors into execution plans.

A plan is either a KeyLookup or an IndexedQuery:

  - KeyLookup is chosen when the where clause constrains only the identifier
    field, with an equality or an inq set. The ids keep the caller's order and
    are deduplicated. An empty inq set yields a zero-length lookup that the
    executor answers without contacting the store.
  - IndexedQuery is chosen for everything else: no where clause (match all),
    non-identifier predicates, the identifier combined with other fields, or
    an empty constraint object such as {"id": {}}, which matches nothing.

Compilation is pure; values are coerced to the schema's field types and
malformed filters fail with a ValidationError before any I/O happens.

Matcher evaluates compiled terms with expr for backends without a native
query language.
*/
package planner
