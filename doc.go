// Package authcore is an account authentication and session lifecycle engine:
// short-lived signed access tokens, rotating single-use refresh secrets, a
// Redis session cache in front of the durable store, fixed-window rate
// limiting, federated sign-in through OAuth2 providers, and numeric-code
// email verification.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([Tokens], [RegisterInput]). Durable state goes through
// [credential.Store] (store/postgres, store/bolt). Redis-backed concerns (the
// session cache, rate counters and pending verification codes) live in cache,
// session and internal packages and are never exported from here.
//
// # What this package must NOT do
//
//   - Store or log refresh secrets or verification codes in plaintext.
//   - Serve a cached session past the expiry of its backing credential.
//   - Let a cache failure reach the caller; it falls back to the store.
//
// # Performance contract
//
// Authenticate is the hot path: one signature check and one cache read. The
// store is consulted only on cache miss or cache error.
package authcore
