// Package cache provides the ephemeral TTL key-value store used as the
// engine's Token Cache.
//
// # Contract
//
// Every call is a single round trip bounded by the configured operation
// timeout. The package never retries; callers decide how to degrade.
// Absence is reported as [ErrMiss], any backend failure as [ErrUnavailable].
//
// # What this package must NOT do
//
//   - Interpret cached values (codecs live in the session package).
//   - Be treated as authoritative: cache contents are advisory only.
package cache
