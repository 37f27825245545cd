// Package stores provides Redis-backed, short-lived record stores for
// security-sensitive authentication flows. Today that is the email
// verification code store.
//
// # Design
//
// Each store persists a versioned, binary-encoded record in Redis with a TTL.
// Consume runs as a single Lua script so check, attempt accounting and
// deletion are one atomic step. Records are single-use: deleted on success,
// on expiry and once the attempt budget is spent. The final secret comparison
// is constant-time.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for transient
// challenge records. It does NOT generate codes, enforce rate limits, or
// flip account state. Those belong to the engine.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package.
//   - Log or expose plaintext codes.
//   - Use non-constant-time comparisons for secret matching.
package stores
