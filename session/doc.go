// Package session holds the cached view of a live session and its compact
// binary encoding for the authentication hot path.
//
// # Binary encoding
//
// Entries are stored as a versioned binary blob. Decoding rejects unknown
// versions and truncated input; callers treat either as a cache miss.
//
// # Architecture boundaries
//
// This package owns [Entry] and the [Cache] facade over a [cache.Cache]. It
// does NOT decide whether a session is valid: the durable store does, and the
// engine re-primes entries from it. Eviction leaves a short-lived
// revocation marker in place of the entry; a later prime never replaces it.
//
// # What this package must NOT do
//
//   - Import authcore or jwt (no upward imports).
//   - Store refresh secrets or their hashes in [Entry].
//   - Cache an entry beyond the lifetime of the credential it mirrors.
package session
