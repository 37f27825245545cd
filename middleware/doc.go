// Package middleware exposes net/http adapters over authcore.Engine.
//
// # Guards
//
//   - [Guard] authenticates the bearer token against the session state.
//   - [RequireJWTOnly] checks signature and expiry only, no cache or store call.
//   - [RequireVerified] additionally requires a verified email. Mount it
//     inside Guard.
//   - [ClientIP] records the caller address for per-IP rate limits.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the credential store.
//   - Reveal why a request was rejected beyond a generic body.
package middleware
