/*
Package consistency tracks the boundary between the two consistency domains
of a record store.

Key-path reads and writes (get, set, remove by identifier) are immediately
consistent. Indexed queries read a secondary index that catches up with
key-path writes after some delay, so a query issued right after a create or
remove may return stale results.

The Tracker records the time of every key-path mutation per collection and,
before an indexed query, applies a Policy:

	ignore  run the query
	warn    run the query; log a warning and count it (default)
	reject  fail with errors.IndexPendingError

Callers that need strong consistency filter on identifiers, which compiles to
a key lookup and bypasses the index entirely. The tracker never sleeps or
retries.
*/
package consistency
