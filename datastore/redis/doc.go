/*
Package redis provides a Redis implementation of the DataStore interface.

Records are stored as JSON documents, one string key per record:

	<prefix>rec:<collection>::<id>

A set per collection lists the identifiers written to it:

	<prefix>idx:<collection>

Key-path operations touch a single record key and are immediately
consistent. Query reads the collection set, fetches the records in pages
with MGET and evaluates the terms in process, so it returns results ordered
by identifier. Writes update both keys in one MULTI/EXEC transaction.
*/
package redis
