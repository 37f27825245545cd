// Package postgres implements credential.Store on PostgreSQL through
// database/sql and the pgx stdlib driver.
//
// Schema is managed by embedded goose migrations ([Store.Migrate]). Refresh
// rotation is a conditional UPDATE ... RETURNING followed by the replacement
// INSERT inside one transaction, so two concurrent rotations of the same hash
// cannot both match.
//
// Errors are mapped onto the credential sentinels: no rows becomes
// credential.ErrNotFound, unique violations credential.ErrConflict, and every
// other driver failure wraps credential.ErrUnavailable.
package postgres
