// Package internal holds the random identifiers and secrets the engine
// issues: session ids, refresh tokens and their lookup hashes, and numeric
// verification codes.
//
// Sub-packages:
//
//   - config: authd environment configuration
//   - httpapi: the authd HTTP surface
//   - logging: slog construction for authd
//   - rate: Redis fixed-window rate limiting
//   - stores: the Redis verification code store
package internal
