// Package bolt implements credential.Store on an embedded bbolt database for
// single-node deployments and tests.
//
// Every mutation runs inside one bbolt write transaction, and bbolt admits a
// single writer at a time, so refresh rotation is compare-and-invalidate by
// construction. Records are JSON encoded. Secondary indexes (email,
// username, provider subject, live session head, account sessions) live in
// their own buckets and are maintained in the same transaction as the record.
package bolt
